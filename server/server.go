package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/tbxark/csagent/agent"
)

// Conversations is what the handlers need from *agent.Agent. Every call acts
// on the session selected with agent.WithSessionKey.
type Conversations interface {
	Send(ctx context.Context, msg *schema.Message) (*agent.ConversationState, error)
	State(ctx context.Context) (*agent.ConversationState, error)
	Reset(ctx context.Context) error
}

type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

type Handler struct {
	conv Conversations
}

func NewHandler(conv Conversations) *Handler {
	return &Handler{conv: conv}
}

func NewRouter(h *Handler, opts Options) chi.Router {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	RegisterRoutes(r, h)

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})
	return r
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.ResetSession)
		r.Post("/messages", h.PostMessage)
	})
}

func (h *Handler) sessionContext(r *http.Request) context.Context {
	return agent.WithSessionKey(r.Context(), chi.URLParam(r, "id"))
}

func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content string `json:"content"`
	}
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Content) == "" {
		http.Error(w, "missing content", http.StatusBadRequest)
		return
	}

	st, err := h.conv.Send(h.sessionContext(r), schema.UserMessage(payload.Content))
	if err != nil {
		slog.Error("Turn failed", "session", chi.URLParam(r, "id"), "error", err)
		http.Error(w, "processing error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	st, err := h.conv.State(h.sessionContext(r))
	if err != nil {
		slog.Error("Read state failed", "session", chi.URLParam(r, "id"), "error", err)
		http.Error(w, "processing error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	if err := h.conv.Reset(h.sessionContext(r)); err != nil {
		slog.Error("Reset failed", "session", chi.URLParam(r, "id"), "error", err)
		http.Error(w, "processing error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
