package design

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type saveRequest struct {
	Name  string          `json:"name"`
	Scene json.RawMessage `json:"scene"`
}

// Routes registers the design endpoints on r.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/api/designs", h.List).Methods("GET")
	r.HandleFunc("/api/designs", h.Create).Methods("POST")
	r.HandleFunc("/api/designs/{designId}", h.Get).Methods("GET")
	r.HandleFunc("/api/designs/{designId}", h.Put).Methods("PUT")
	r.HandleFunc("/api/designs/{designId}", h.Delete).Methods("DELETE")
	r.HandleFunc("/api/designs/{designId}/thumbnail.jpg", h.Thumbnail).Methods("GET")
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	designs, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("list designs failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, designs)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "", http.StatusCreated)
}

func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, mux.Vars(r)["designId"], http.StatusOK)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request, id string, status int) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Scene) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scene is required"})
		return
	}

	d, err := h.service.Save(r.Context(), id, req.Name, req.Scene)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	d.Scene = nil
	writeJSON(w, status, d)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Get(r.Context(), mux.Vars(r)["designId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["designId"]); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Thumbnail(r.Context(), mux.Vars(r)["designId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrInvalidScene):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
