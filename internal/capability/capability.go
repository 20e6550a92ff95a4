package capability

import (
	"errors"
	"slices"
	"strings"
)

var ErrNotPermitted = errors.New("operation not permitted")

// Set is the read-only restriction map handed to the editor. A nil list
// permits every value; an empty non-nil list permits none.
type Set struct {
	BackgroundTypes []string `json:"backgroundTypes"`
	ShapeTypes      []string `json:"shapeTypes"`
	Fonts           []string `json:"fonts"`
	Crop            bool     `json:"crop"`
	Blur            bool     `json:"blur"`
	Border          bool     `json:"border"`
}

// Unrestricted permits everything.
func Unrestricted() Set {
	return Set{Crop: true, Blur: true, Border: true}
}

func (s Set) AllowsBackground(t string) bool { return allows(s.BackgroundTypes, t) }
func (s Set) AllowsShape(t string) bool      { return allows(s.ShapeTypes, t) }

func (s Set) AllowsFont(font string) bool {
	if s.Fonts == nil || font == "" {
		return true
	}
	return slices.ContainsFunc(s.Fonts, func(f string) bool {
		return strings.EqualFold(f, font)
	})
}

func allows(list []string, v string) bool {
	if list == nil {
		return true
	}
	return slices.Contains(list, v)
}
