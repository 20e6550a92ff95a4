//go:build js && wasm

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"syscall/js"
	"time"

	"github.com/etendy/canvas/backend-go/internal/document"
	"github.com/etendy/canvas/backend-go/internal/engine"
	"github.com/etendy/canvas/backend-go/internal/render"
	"github.com/etendy/canvas/backend-go/internal/resource"
)

var (
	eng      *engine.Engine
	renderer *render.Renderer
)

func main() {
	cache := resource.NewCache(resource.Router{
		Data: resource.DataURIFetcher{},
		HTTP: resource.NewHTTPFetcher(15 * time.Second),
	})
	renderer = render.New(cache)
	eng = engine.NewEngine(engine.WithMeasurer(renderer.Fonts()))

	api := js.Global().Get("Object").New()

	// --- Commands (host → engine) ---
	api.Set("loadScene", js.FuncOf(loadScene))
	api.Set("loadSampleScene", js.FuncOf(loadSampleScene))
	api.Set("pointerDown", js.FuncOf(pointerDown))
	api.Set("pointerMove", js.FuncOf(pointerMove))
	api.Set("pointerUp", js.FuncOf(pointerUp))
	api.Set("keyDown", js.FuncOf(keyDown))
	api.Set("addShape", js.FuncOf(addShape))
	api.Set("addText", js.FuncOf(addText))
	api.Set("addImage", js.FuncOf(addImage))
	api.Set("addLogo", js.FuncOf(addLogo))
	api.Set("updateElement", js.FuncOf(updateElement))
	api.Set("setProperties", js.FuncOf(setProperties))
	api.Set("removeElements", js.FuncOf(removeElements))
	api.Set("setSelection", js.FuncOf(setSelection))
	api.Set("undo", js.FuncOf(undo))
	api.Set("redo", js.FuncOf(redo))
	api.Set("beginCrop", js.FuncOf(beginCrop))
	api.Set("setCrop", js.FuncOf(setCrop))
	api.Set("resetCrop", js.FuncOf(resetCrop))
	api.Set("endCrop", js.FuncOf(endCrop))

	// --- Queries (host ← engine) ---
	api.Set("getScene", js.FuncOf(getScene))
	api.Set("getState", js.FuncOf(getState))
	api.Set("hitTest", js.FuncOf(hitTest))
	api.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	api.Set("getElementBounds", js.FuncOf(getElementBounds))
	api.Set("renderPreview", js.FuncOf(renderPreview))
	api.Set("exportJPEG", js.FuncOf(exportJPEG))

	js.Global().Set("canvasEngine", api)
	js.Global().Set("canvasWasmReady", js.ValueOf(true))

	select {}
}

func ok(changed bool) interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true, "changed": changed})
}

func fail(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func missing(what string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": "missing " + what})
}

// --- Command Handlers ---

func loadScene(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("scene JSON")
	}
	if err := eng.LoadScene([]byte(args[0].String())); err != nil {
		return fail(err)
	}
	return ok(true)
}

func loadSampleScene(this js.Value, args []js.Value) interface{} {
	eng.SetScene(document.NewSampleScene())
	return ok(true)
}

func pointer(args []js.Value) (engine.Point, engine.Modifiers) {
	p := engine.Point{X: args[0].Float(), Y: args[1].Float()}
	var mod engine.Modifiers
	if len(args) > 2 {
		mod.Shift = args[2].Truthy()
	}
	return p, mod
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("coordinates")
	}
	return ok(eng.PointerDown(pointer(args)))
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("coordinates")
	}
	return ok(eng.PointerMove(pointer(args)))
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	return ok(eng.PointerUp())
}

func keyDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("key")
	}
	textFocused := len(args) > 1 && args[1].Truthy()
	return ok(eng.KeyDown(args[0].String(), textFocused))
}

func added(id string, err error) interface{} {
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(map[string]interface{}{"ok": true, "id": id})
}

func addShape(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("shape type")
	}
	return added(eng.AddShape(document.ShapeType(args[0].String())))
}

func addText(this js.Value, args []js.Value) interface{} {
	content := "Text"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		content = args[0].String()
	}
	return added(eng.AddText(content))
}

func addImage(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return missing("src and natural size")
	}
	return added(eng.AddImage(args[0].String(), args[1].Float(), args[2].Float()))
}

func addLogo(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return missing("src and natural size")
	}
	return added(eng.AddLogo(args[0].String(), args[1].Float(), args[2].Float()))
}

func parsePatch(args []js.Value) (string, document.Patch, error) {
	var patch document.Patch
	if err := json.Unmarshal([]byte(args[1].String()), &patch); err != nil {
		return "", nil, err
	}
	return args[0].String(), patch, nil
}

func updateElement(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("id and patch")
	}
	id, patch, err := parsePatch(args)
	if err != nil {
		return fail(err)
	}
	changed, err := eng.UpdateElement(id, patch)
	if err != nil {
		return fail(err)
	}
	return ok(changed)
}

func setProperties(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("id and patch")
	}
	id, patch, err := parsePatch(args)
	if err != nil {
		return fail(err)
	}
	changed, err := eng.SetProperties(id, patch)
	if err != nil {
		return fail(err)
	}
	return ok(changed)
}

func stringArray(v js.Value) []string {
	if v.Type() != js.TypeObject {
		return nil
	}
	ids := make([]string, v.Length())
	for i := range ids {
		ids[i] = v.Index(i).String()
	}
	return ids
}

func removeElements(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return ok(false)
	}
	return ok(eng.RemoveElements(stringArray(args[0])...) > 0)
}

func setSelection(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		eng.SetSelection(nil)
		return ok(true)
	}
	eng.SetSelection(stringArray(args[0]))
	return ok(true)
}

func undo(this js.Value, args []js.Value) interface{} {
	return ok(eng.Undo())
}

func redo(this js.Value, args []js.Value) interface{} {
	return ok(eng.Redo())
}

func beginCrop(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("element id")
	}
	if err := eng.BeginCrop(args[0].String()); err != nil {
		return fail(err)
	}
	return ok(true)
}

func setCrop(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("crop JSON")
	}
	var r engine.CropRect
	if err := json.Unmarshal([]byte(args[0].String()), &r); err != nil {
		return fail(err)
	}
	return ok(eng.SetCrop(r))
}

func resetCrop(this js.Value, args []js.Value) interface{} {
	return ok(eng.ResetCrop())
}

func endCrop(this js.Value, args []js.Value) interface{} {
	eng.EndCrop()
	return ok(true)
}

// --- Query Handlers ---

func getScene(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetScene())
}

func getState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.StateJSON())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	return js.ValueOf(eng.HitTest(args[0].Float(), args[1].Float()))
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetSelectionBounds())
}

func getElementBounds(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("null")
	}
	return js.ValueOf(eng.GetElementBounds(args[0].String()))
}

// renderPreview resolves to {width, height, data} with data holding RGBA
// pixels for an ImageData. Rendering waits on image loads, so it runs off
// the callback goroutine.
func renderPreview(this js.Value, args []js.Value) interface{} {
	scene := eng.Snapshot()
	aff := render.AffordancesFrom(eng)
	return promise(func() (js.Value, error) {
		frame, err := renderer.Preview(context.Background(), scene, aff)
		if err != nil {
			return js.Undefined(), err
		}
		return pixels(frame), nil
	})
}

// exportJPEG resolves to a Uint8Array holding the exported JPEG.
func exportJPEG(this js.Value, args []js.Value) interface{} {
	scene := eng.Snapshot()
	quality := render.DefaultJPEGQuality
	if len(args) > 0 && args[0].Type() == js.TypeNumber {
		quality = args[0].Int()
	}
	return promise(func() (js.Value, error) {
		frame, err := renderer.Export(context.Background(), scene)
		if err != nil {
			return js.Undefined(), err
		}
		var buf bytes.Buffer
		if err := render.EncodeJPEG(&buf, frame, quality); err != nil {
			return js.Undefined(), err
		}
		out := js.Global().Get("Uint8Array").New(buf.Len())
		js.CopyBytesToJS(out, buf.Bytes())
		return out, nil
	})
}

func pixels(img *image.RGBA) js.Value {
	data := js.Global().Get("Uint8ClampedArray").New(len(img.Pix))
	js.CopyBytesToJS(data, img.Pix)
	obj := js.Global().Get("Object").New()
	obj.Set("width", img.Bounds().Dx())
	obj.Set("height", img.Bounds().Dy())
	obj.Set("data", data)
	return obj
}

func promise(work func() (js.Value, error)) js.Value {
	var executor js.Func
	executor = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		resolve, reject := args[0], args[1]
		go func() {
			defer executor.Release()
			v, err := work()
			if err != nil {
				reject.Invoke(js.Global().Get("Error").New(err.Error()))
				return
			}
			resolve.Invoke(v)
		}()
		return nil
	})
	return js.Global().Get("Promise").New(executor)
}
