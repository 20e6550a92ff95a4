package document

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FontWeight is a CSS-style weight: "normal", "bold" or a number 100–900.
// Numeric JSON values are accepted and kept in their string form.
type FontWeight string

func (w *FontWeight) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '"' {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*w = FontWeight(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*w = FontWeight(s)
	return nil
}

// Bold reports whether the weight selects a bold face.
func (w FontWeight) Bold() bool {
	switch strings.ToLower(string(w)) {
	case "bold", "bolder":
		return true
	case "", "normal", "lighter":
		return false
	}
	n, err := strconv.Atoi(string(w))
	return err == nil && n >= 600
}

// Lines splits the content on newlines and applies the text transform.
func (e *TextElement) Lines() []string {
	lines := strings.Split(e.Content, "\n")
	var c cases.Caser
	switch e.Transform {
	case TransformUppercase:
		c = cases.Upper(language.Und)
	case TransformCapitalize:
		c = cases.Title(language.Und, cases.NoLower)
	default:
		return lines
	}
	for i, l := range lines {
		lines[i] = c.String(l)
	}
	return lines
}
