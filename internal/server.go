package internal

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SessionCookie names the cookie that ties a browser to its conversation
const SessionCookie = "ytchat_session"

//go:embed web/index.html
var webFS embed.FS

var pageTemplate = template.Must(template.ParseFS(webFS, "web/index.html"))

// pageData feeds web/index.html
type pageData struct {
	Title        string
	URL          string
	Conversation Snapshot
}

// Server is the browser UI. Each visitor gets a separate session.
type Server struct {
	sessions *SessionStore
	title    string
	logger   *slog.Logger
	router   chi.Router
}

// NewServer creates the UI for pipeline
func NewServer(pipeline *Pipeline, sessions *SessionStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if sessions == nil {
		sessions = NewSessionStore(pipeline, 0)
	}

	title := "YouTube Video Chatbot"
	if pipeline.Variant == VariantAWS {
		title = "YouTube Video Chatbot (AWS Powered)"
	}

	s := &Server{
		sessions: sessions,
		title:    title,
		logger:   logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Post("/load", s.handleLoad)
	r.Post("/ask", s.handleAsk)
	r.Post("/reset", s.handleReset)
	r.Get("/api/conversation", s.handleConversation)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		Message(w, http.StatusOK, "ok")
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// loads can wait on a transcription job for minutes
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving web UI", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down web UI")
	return srv.Shutdown(shutdownCtx)
}

// session returns the caller's session, issuing a cookie for new visitors
func (s *Server) session(w http.ResponseWriter, r *http.Request) *Session {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}

	session, created := s.sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    session.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return session
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, s.session(w, r).Snapshot())
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	snap := session.Load(r.Context(), formValue(r, "url"))
	s.respond(w, r, snap)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	session.Ask(r.Context(), formValue(r, "question"))
	s.respond(w, r, session.Snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	session.Clear()
	s.respond(w, r, session.Snapshot())
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session(w, r).Snapshot())
}

// respond answers API clients with JSON and browsers with a redirect back to the page
func (s *Server) respond(w http.ResponseWriter, r *http.Request, snap Snapshot) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, snap)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, snap Snapshot) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := pageData{Title: s.title, URL: snap.URL, Conversation: snap}
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("rendering page", slog.Any("error", err))
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request served",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// formValue reads name from a form post or a JSON object body
func formValue(r *http.Request, name string) string {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return r.FormValue(name)
	}
	var body map[string]string
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body); err != nil {
		return ""
	}
	return body[name]
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("encoding response", slog.Any("error", err))
	}
}

// Message writes a JSON status message
func Message(w http.ResponseWriter, status int, message string, details ...any) {
	writeJSON(w, status, struct {
		Message string `json:"message"`
		Details []any  `json:"details,omitempty"`
	}{
		Message: message,
		Details: details,
	})
}
