package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jusunglee/ciphertrack-go/internal/models"
	"github.com/jusunglee/ciphertrack-go/internal/settings"
	"github.com/jusunglee/ciphertrack-go/pkg/ciphertrack"
)

// Handler handles HTTP requests
type Handler struct {
	client ciphertrack.Client
}

// NewHandler creates a new HTTP handler
func NewHandler(client ciphertrack.Client) *Handler {
	return &Handler{client: client}
}

// RegisterRoutes registers all routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", h.handleIndex).Methods("GET")
	r.HandleFunc("/search", h.handleSearch).Methods("POST")
	r.HandleFunc("/refresh", h.handleRefresh).Methods("POST")
	r.HandleFunc("/back", h.handleBack).Methods("POST")
	r.HandleFunc("/status", h.handleStatus).Methods("GET")
	r.HandleFunc("/route", h.handleRoute).Methods("GET")
	r.HandleFunc("/position", h.handlePosition).Methods("GET")
	r.HandleFunc("/settings", h.handleGetSettings).Methods("GET")
	r.HandleFunc("/settings", h.handlePutSettings).Methods("PUT")
	r.HandleFunc("/feed.pb", h.handleFeed).Methods("GET")
}

// Response wraps API responses
type Response struct {
	Data    interface{} `json:"data"`
	Updated string      `json:"updated,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SearchRequest is the body of POST /search
type SearchRequest struct {
	TrainNumber string `json:"train_number"`
}

// SearchResponse acknowledges a new tracking session
type SearchResponse struct {
	SessionID string                `json:"session_id"`
	Status    models.StatusResponse `json:"status"`
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"title":  "ciphertrack-go",
		"readme": "POST /search with {\"train_number\": \"...\"} then poll GET /status",
	}
	h.writeJSON(w, response)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			h.writeError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	if req.TrainNumber == "" {
		req.TrainNumber = r.URL.Query().Get("train")
	}

	sessionID, err := h.client.SubmitSearch(req.TrainNumber)
	if errors.Is(err, ciphertrack.ErrEmptyTrainNumber) {
		h.writeError(w, "Missing train_number", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	view := h.client.View()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	h.writeJSON(w, SearchResponse{
		SessionID: sessionID,
		Status:    view.ConvertToResponse(),
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	h.client.ManualRefresh()
	h.writeStatus(w)
}

func (h *Handler) handleBack(w http.ResponseWriter, r *http.Request) {
	h.client.NavigateBack()
	h.writeStatus(w)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeStatus(w)
}

func (h *Handler) handleRoute(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, Response{
		Data:    h.client.Route(),
		Updated: h.updated(),
	})
}

func (h *Handler) handlePosition(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, Response{
		Data:    h.client.Position(),
		Updated: h.updated(),
	})
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.client.Settings(r.Context())
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, Response{Data: s})
}

func (h *Handler) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var s settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		h.writeError(w, "Invalid settings body", http.StatusBadRequest)
		return
	}
	if err := h.client.UpdateSettings(r.Context(), s); err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, Response{Data: s})
}

func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	data, err := h.client.Feed()
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/x-protobuf")
	w.Write(data)
}

func (h *Handler) writeStatus(w http.ResponseWriter) {
	view := h.client.View()
	h.writeJSON(w, Response{
		Data:    view.ConvertToResponse(),
		Updated: h.updated(),
	})
}

func (h *Handler) updated() string {
	if last := h.client.GetLastUpdate(); !last.IsZero() {
		return last.Format(time.RFC3339)
	}
	return ""
}

func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.writeError(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
