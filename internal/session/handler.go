package session

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/coder/websocket"

	"github.com/etendy/canvas/backend-go/internal/capability"
	"github.com/etendy/canvas/backend-go/internal/design"
	"github.com/etendy/canvas/backend-go/internal/engine"
	"github.com/etendy/canvas/backend-go/internal/render"
	"github.com/etendy/canvas/backend-go/internal/typeid"
)

// Handler upgrades /ws/session requests into edit sessions. The capability
// set comes from the request context; ?design=<id> opens a stored design.
type Handler struct {
	hub            *Hub
	renderer       *render.Renderer
	designs        Designs
	historyLimit   int
	originPatterns []string
}

func NewHandler(hub *Hub, renderer *render.Renderer, designs Designs, historyLimit int, origins []string) *Handler {
	return &Handler{
		hub:            hub,
		renderer:       renderer,
		designs:        designs,
		historyLimit:   historyLimit,
		originPatterns: originHosts(origins),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caps := capability.FromContext(r.Context())
	fonts := h.renderer.Fonts()
	e := engine.NewEngine(
		engine.WithCapabilities(caps),
		engine.WithMeasurer(fonts),
		engine.WithHistoryLimit(h.historyLimit),
	)

	s := newSession(typeid.NewSessionID(), nil, e, h.renderer, h.designs)
	for _, f := range fonts.Families() {
		if caps.AllowsFont(f) {
			s.fonts = append(s.fonts, f)
		}
	}

	if id := r.URL.Query().Get("design"); id != "" {
		if err := s.loadDesign(r.Context(), id); err != nil {
			if errors.Is(err, design.ErrNotFound) {
				http.Error(w, "design not found", http.StatusNotFound)
				return
			}
			slog.Error("open design for session", "error", err, "design", id)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}
	s.conn = conn

	if !h.hub.Register(s) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	s.Run(r.Context())
}

// originHosts turns configured origins such as "http://localhost:5173" into
// the host patterns websocket.Accept matches against.
func originHosts(origins []string) []string {
	var hosts []string
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
		} else {
			hosts = append(hosts, o)
		}
	}
	return hosts
}
