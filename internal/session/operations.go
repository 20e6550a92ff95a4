package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/etendy/canvas/backend-go/internal/document"
	"github.com/etendy/canvas/backend-go/internal/engine"
)

// handle applies one client message to the engine and reports whether the
// editor state changed.
func (s *Session) handle(ctx context.Context, msg *Message) (bool, error) {
	e := s.engine
	switch msg.Type {
	case TypePointerDown, TypePointerMove:
		var p PointerPayload
		if err := decode(msg.Payload, &p); err != nil {
			return false, err
		}
		pt, mod := engine.Point{X: p.X, Y: p.Y}, engine.Modifiers{Shift: p.Shift}
		if msg.Type == TypePointerDown {
			return e.PointerDown(pt, mod), nil
		}
		return e.PointerMove(pt, mod), nil

	case TypePointerUp:
		return e.PointerUp(), nil

	case TypeKeyDown:
		var k KeyPayload
		if err := decode(msg.Payload, &k); err != nil {
			return false, err
		}
		return e.KeyDown(k.Key, k.TextFocused), nil

	case TypeElementAdd:
		return s.addElement(msg.Payload)

	case TypeElementUpdate:
		var u UpdatePayload
		if err := decode(msg.Payload, &u); err != nil {
			return false, err
		}
		return e.SetProperties(u.ID, u.Patch)

	case TypeElementRemove:
		var p IDsPayload
		if err := decode(msg.Payload, &p); err != nil {
			return false, err
		}
		return e.RemoveElements(p.IDs...) > 0, nil

	case TypeElementReorder:
		var p ReorderPayload
		if err := decode(msg.Payload, &p); err != nil {
			return false, err
		}
		return e.Reorder(p.ID, p.Index), nil

	case TypeSelect:
		var p IDsPayload
		if err := decode(msg.Payload, &p); err != nil {
			return false, err
		}
		e.SetSelection(p.IDs)
		return true, nil

	case TypeBackgroundSet:
		var bg document.Background
		if err := decode(msg.Payload, &bg); err != nil {
			return false, err
		}
		return true, e.SetBackground(bg)

	case TypeOverlaySet:
		var o document.Overlay
		if err := decode(msg.Payload, &o); err != nil {
			return false, err
		}
		e.SetOverlay(o)
		return true, nil

	case TypeCanvasResize:
		var c CanvasPayload
		if err := decode(msg.Payload, &c); err != nil {
			return false, err
		}
		return true, e.SetCanvasSize(c.Width, c.Height)

	case TypeUndo:
		return e.Undo(), nil

	case TypeRedo:
		return e.Redo(), nil

	case TypeCropBegin:
		var c CropBeginPayload
		if err := decode(msg.Payload, &c); err != nil {
			return false, err
		}
		return true, e.BeginCrop(c.ID)

	case TypeCropSet:
		var r engine.CropRect
		if err := decode(msg.Payload, &r); err != nil {
			return false, err
		}
		return e.SetCrop(r), nil

	case TypeCropReset:
		return e.ResetCrop(), nil

	case TypeCropEnd:
		changed := e.Crop() != nil
		e.EndCrop()
		return changed, nil

	case TypeSceneLoad:
		return s.load(ctx, msg.Payload)

	case TypeSceneSave:
		return false, s.save(ctx, msg.Seq, msg.Payload)

	case TypePreviewFetch:
		return true, nil

	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

func (s *Session) addElement(payload json.RawMessage) (bool, error) {
	var p AddPayload
	if err := decode(payload, &p); err != nil {
		return false, err
	}
	e := s.engine

	if len(p.Element) > 0 {
		el, err := document.DecodeElement(p.Element)
		if err != nil {
			return false, err
		}
		if err := e.AddElement(el); err != nil {
			return false, err
		}
		return true, nil
	}

	var err error
	switch p.Kind {
	case "shape":
		_, err = e.AddShape(p.ShapeType)
	case "text":
		_, err = e.AddText(p.Content)
	case "image":
		_, err = e.AddImage(p.Src, p.NaturalWidth, p.NaturalHeight)
	case "logo":
		_, err = e.AddLogo(p.Src, p.NaturalWidth, p.NaturalHeight)
	default:
		return false, fmt.Errorf("%w: %q", document.ErrUnknownElement, p.Kind)
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Session) load(ctx context.Context, payload json.RawMessage) (bool, error) {
	var p LoadPayload
	if err := decode(payload, &p); err != nil {
		return false, err
	}
	if len(p.Scene) > 0 {
		if err := s.engine.LoadScene(p.Scene); err != nil {
			return false, err
		}
		return true, nil
	}
	if p.DesignID == "" {
		return false, fmt.Errorf("scene or designId is required")
	}
	if err := s.loadDesign(ctx, p.DesignID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Session) loadDesign(ctx context.Context, id string) error {
	if s.designs == nil {
		return ErrNoPersistence
	}
	d, err := s.designs.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load design: %w", err)
	}
	if err := s.engine.LoadScene(d.Scene); err != nil {
		return err
	}
	s.DesignID = d.ID
	s.name = d.Name
	return nil
}

// save stores the scene under the session's design, creating one on the
// first save.
func (s *Session) save(ctx context.Context, seq int64, payload json.RawMessage) error {
	if s.designs == nil {
		return ErrNoPersistence
	}
	var p SavePayload
	if len(payload) > 0 {
		if err := decode(payload, &p); err != nil {
			return err
		}
	}
	if p.Name != "" {
		s.name = p.Name
	}
	scene, err := s.engine.SceneJSON()
	if err != nil {
		return err
	}
	d, err := s.designs.Save(ctx, s.DesignID, s.name, scene)
	if err != nil {
		return fmt.Errorf("save design: %w", err)
	}
	s.DesignID = d.ID
	d.Scene = nil
	s.sendMessage(TypeSaved, seq, SavedPayload{Design: *d})
	return nil
}
