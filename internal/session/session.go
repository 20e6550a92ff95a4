package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/coder/websocket"

	"github.com/etendy/canvas/backend-go/internal/document"
	"github.com/etendy/canvas/backend-go/internal/engine"
	"github.com/etendy/canvas/backend-go/internal/render"
	"github.com/etendy/canvas/backend-go/internal/store"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 4 << 20

	// PreviewQuality is the JPEG quality of live preview frames.
	PreviewQuality = 75
)

var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrNoPersistence  = errors.New("design persistence unavailable")
)

// Previewer paints a scene with editing affordances on top.
type Previewer interface {
	Preview(ctx context.Context, s *document.Scene, a render.Affordances) (*image.RGBA, error)
}

// Designs loads and saves stored designs.
type Designs interface {
	Get(ctx context.Context, id string) (*store.Design, error)
	Save(ctx context.Context, id, name string, scene []byte) (*store.Design, error)
}

type outbound struct {
	kind websocket.MessageType
	data []byte
}

type frameRequest struct {
	scene *document.Scene
	aff   render.Affordances
}

// Session is one editor connection. The read pump is the only goroutine that
// touches the engine; previews render from scene clones.
type Session struct {
	ID       string
	DesignID string

	conn       *websocket.Conn
	engine     *engine.Engine
	preview    Previewer
	designs    Designs
	fonts      []string
	name       string
	send       chan outbound
	frames     chan frameRequest
	unregister func(*Session)
}

func newSession(id string, conn *websocket.Conn, e *engine.Engine, p Previewer, d Designs) *Session {
	return &Session{
		ID:      id,
		conn:    conn,
		engine:  e,
		preview: p,
		designs: d,
		send:    make(chan outbound, 64),
		frames:  make(chan frameRequest, 1),
	}
}

// Run serves the connection until the client leaves or ctx ends.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.writePump(ctx)
	go s.previewPump(ctx)

	s.sendMessage(TypeWelcome, 0, WelcomePayload{
		SessionID:    s.ID,
		DesignID:     s.DesignID,
		Capabilities: s.engine.Capabilities(),
		Fonts:        s.fonts,
	})
	s.publish(0)
	s.readPump(ctx)
}

func (s *Session) readPump(ctx context.Context) {
	defer func() {
		if s.unregister != nil {
			s.unregister(s)
		}
		s.conn.Close(websocket.StatusNormalClosure, "")
	}()

	s.conn.SetReadLimit(maxMsgSize)

	for {
		kind, data, err := s.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			slog.Debug("read error", "error", err, "session", s.ID)
			return
		}
		if kind != websocket.MessageText {
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid message", "error", err, "session", s.ID)
			s.sendError(0, "invalid message")
			continue
		}

		changed, err := s.handle(ctx, &msg)
		if err != nil {
			s.sendError(msg.Seq, err.Error())
			continue
		}
		if changed {
			s.publish(msg.Seq)
		}
	}
}

func (s *Session) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case out := <-s.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := s.conn.Write(writeCtx, out.kind, out.data)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "session", s.ID)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := s.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// previewPump renders the most recent frame request. Requests that arrive
// while a frame is rendering replace each other.
func (s *Session) previewPump(ctx context.Context) {
	for {
		select {
		case req := <-s.frames:
			frame, err := s.preview.Preview(ctx, req.scene, req.aff)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("preview failed", "error", err, "session", s.ID)
				}
				continue
			}
			var buf bytes.Buffer
			if err := render.EncodeJPEG(&buf, frame, PreviewQuality); err != nil {
				slog.Warn("encode preview", "error", err, "session", s.ID)
				continue
			}
			s.enqueue(outbound{kind: websocket.MessageBinary, data: buf.Bytes()})

		case <-ctx.Done():
			return
		}
	}
}

// publish sends the editor state and schedules a preview frame.
func (s *Session) publish(seq int64) {
	scene, err := s.engine.SceneJSON()
	if err != nil {
		slog.Error("encode scene", "error", err, "session", s.ID)
		return
	}
	s.sendMessage(TypeSceneState, seq, StatePayload{State: s.engine.State(), Scene: scene})

	req := frameRequest{scene: s.engine.Snapshot(), aff: render.AffordancesFrom(s.engine)}
	select {
	case <-s.frames:
	default:
	}
	select {
	case s.frames <- req:
	default:
	}
}

func (s *Session) sendMessage(typ string, seq int64, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal payload", "error", err, "type", typ)
		return
	}
	msg, err := json.Marshal(Message{Type: typ, Seq: seq, Payload: data})
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}
	s.enqueue(outbound{kind: websocket.MessageText, data: msg})
}

func (s *Session) sendError(seq int64, reason string) {
	s.sendMessage(TypeError, seq, ErrorPayload{Seq: seq, Reason: reason})
}

func (s *Session) enqueue(out outbound) {
	select {
	case s.send <- out:
	default:
		slog.Warn("session send buffer full, dropping message", "session", s.ID)
	}
}

// Close ends the session with a going-away status.
func (s *Session) Close(reason string) {
	s.conn.Close(websocket.StatusGoingAway, reason)
}

func decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return fmt.Errorf("missing payload")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}
