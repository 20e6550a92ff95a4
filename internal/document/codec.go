package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Elements is the z-ordered element list. It decodes each entry by its
// "type" tag.
type Elements []Element

func (es *Elements) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*es = nil
		return nil
	}
	out := make(Elements, 0, len(raw))
	for i, r := range raw {
		el, err := DecodeElement(r)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, el)
	}
	*es = out
	return nil
}

// DecodeElement parses one tagged element. Fields missing from data take the
// variant defaults (opacity 1, scale 1, line height 1.2 and so on).
func DecodeElement(data []byte) (Element, error) {
	var tag struct {
		Type ElementType `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}

	var el Element
	switch tag.Type {
	case ElementTypeImage:
		el = &ImageElement{Base: defaultBase(), Bitmap: Bitmap{Scale: 1}}
	case ElementTypeLogo:
		el = &LogoElement{Base: defaultBase(), Bitmap: Bitmap{Scale: 1}}
	case ElementTypeText:
		el = &TextElement{
			Base:       defaultBase(),
			Font:       "Go",
			Weight:     "normal",
			Style:      StyleNormal,
			Transform:  TransformNone,
			Size:       48,
			LineHeight: 1.2,
			TextAlign:  AlignLeft,
			ColorType:  ColorSolid,
			Colors:     []string{"#000000"},
		}
	case ElementTypeShape:
		el = &ShapeElement{
			Base:      defaultBase(),
			ShapeType: ShapeRectangle,
			FillType:  FillSolid,
			ColorType: ColorSolid,
			Colors:    []string{"#000000"},
			Spikes:    5,
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownElement, tag.Type)
	}

	if err := json.Unmarshal(data, el); err != nil {
		return nil, fmt.Errorf("decode %s: %w", tag.Type, err)
	}
	return el, nil
}

func defaultBase() Base {
	return Base{Opacity: 1}
}

func (e *ImageElement) MarshalJSON() ([]byte, error) {
	type plain ImageElement
	return json.Marshal(struct {
		Type ElementType `json:"type"`
		*plain
	}{ElementTypeImage, (*plain)(e)})
}

func (e *LogoElement) MarshalJSON() ([]byte, error) {
	type plain LogoElement
	return json.Marshal(struct {
		Type ElementType `json:"type"`
		*plain
	}{ElementTypeLogo, (*plain)(e)})
}

func (e *TextElement) MarshalJSON() ([]byte, error) {
	type plain TextElement
	return json.Marshal(struct {
		Type ElementType `json:"type"`
		*plain
	}{ElementTypeText, (*plain)(e)})
}

func (e *ShapeElement) MarshalJSON() ([]byte, error) {
	type plain ShapeElement
	return json.Marshal(struct {
		Type ElementType `json:"type"`
		*plain
	}{ElementTypeShape, (*plain)(e)})
}

// CornerRadii is a rectangle's border radius: either one uniform value or
// independent top-left, top-right, bottom-right and bottom-left radii.
type CornerRadii struct {
	TL, TR, BR, BL float64
	PerCorner      bool
}

// Uniform returns radii with the same value on every corner.
func Uniform(r float64) CornerRadii {
	return CornerRadii{TL: r, TR: r, BR: r, BL: r}
}

type cornerRadiiJSON struct {
	TL float64 `json:"tl"`
	TR float64 `json:"tr"`
	BR float64 `json:"br"`
	BL float64 `json:"bl"`
}

func (c CornerRadii) MarshalJSON() ([]byte, error) {
	if !c.PerCorner {
		return json.Marshal(c.TL)
	}
	return json.Marshal(cornerRadiiJSON{TL: c.TL, TR: c.TR, BR: c.BR, BL: c.BL})
}

func (c *CornerRadii) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = CornerRadii{}
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var v cornerRadiiJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*c = CornerRadii{TL: v.TL, TR: v.TR, BR: v.BR, BL: v.BL, PerCorner: true}
		return nil
	}
	var r float64
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("borderRadius: %w", err)
	}
	*c = Uniform(r)
	return nil
}

// Patch is a partial property set keyed by JSON field name.
type Patch map[string]any

// Update shallow-merges patch into the element with id. It reports false when
// no such element exists. The id and type of an element cannot be patched.
func (s *Scene) Update(id string, patch Patch) (bool, error) {
	i := s.Index(id)
	if i < 0 {
		return false, nil
	}
	if len(patch) == 0 {
		return true, nil
	}

	current, err := s.Elements[i].MarshalJSON()
	if err != nil {
		return true, fmt.Errorf("encode element %s: %w", id, err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(current, &fields); err != nil {
		return true, fmt.Errorf("encode element %s: %w", id, err)
	}
	for k, v := range patch {
		if k == "id" || k == "type" {
			continue
		}
		if v == nil {
			delete(fields, k)
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return true, fmt.Errorf("patch %s.%s: %w", id, k, err)
		}
		fields[k] = raw
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return true, fmt.Errorf("patch %s: %w", id, err)
	}
	el, err := DecodeElement(merged)
	if err != nil {
		return true, fmt.Errorf("patch %s: %w", id, err)
	}
	s.Elements[i] = el
	return true, nil
}

// Marshal encodes the scene snapshot.
func Marshal(s *Scene) ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal decodes and validates a scene snapshot.
func Unmarshal(data []byte) (*Scene, error) {
	var s Scene
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	if s.Elements == nil {
		s.Elements = Elements{}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
