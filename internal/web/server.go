// Package web serves the browser UI, its JSON API and the websocket push channel.
package web

import (
	"context"
	"embed"
	"encoding/json"
	stderrors "errors"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kapu/multistream-checker-go/internal/constants"
	"github.com/kapu/multistream-checker-go/internal/domain"
	"github.com/kapu/multistream-checker-go/internal/metrics"
	"github.com/kapu/multistream-checker-go/internal/quota"
	"github.com/kapu/multistream-checker-go/internal/service/dispatcher"
	"github.com/kapu/multistream-checker-go/internal/util"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

type Dispatcher interface {
	LoadFromText(ctx context.Context, text string) int
	Refresh(ctx context.Context) dispatcher.CycleResult
	Stop()
	Active() bool
	Entries() []domain.MonitoredEntry
	LastChecked() time.Time
}

type QuotaReporter interface {
	Usage(ctx context.Context) quota.Usage
}

type Settings interface {
	InputText(ctx context.Context) (string, error)
	SaveYouTubeAPIKey(ctx context.Context, key string) error
}

type Options struct {
	Addr       string
	Dispatcher Dispatcher
	Quota      QuotaReporter
	Settings   Settings
	Hub        *Hub
	Guard      *Guard
	Metrics    *metrics.Registry
	Logger     *zap.Logger
}

type Server struct {
	httpServer *http.Server
	dispatcher Dispatcher
	quota      QuotaReporter
	settings   Settings
	hub        *Hub
	guard      *Guard
	metrics    *metrics.Registry
	logger     *zap.Logger
	templates  *template.Template

	// ctx outlives individual requests; background loads and refreshes run under it.
	ctx    context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup
}

func NewServer(opts Options) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"clock":   formatClock,
		"viewers": formatViewers,
		"label":   func(s domain.StreamStatus) string { return s.Label() },
		"display": func(p domain.Platform) string { return p.DisplayName() },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		dispatcher: opts.Dispatcher,
		quota:      opts.Quota,
		settings:   opts.Settings,
		hub:        opts.Hub,
		guard:      opts.Guard,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		templates:  tmpl,
		ctx:        ctx,
		cancel:     cancel,
	}

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: constants.WebConfig.ReadHeaderTimeout,
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /login", s.logged(s.handleLoginPage))
	mux.HandleFunc("POST /login", s.logged(s.handleLogin))
	mux.HandleFunc("POST /logout", s.logged(s.handleLogout))
	mux.HandleFunc("GET /{$}", s.logged(s.page(s.handleIndex)))

	mux.HandleFunc("GET /api/entries", s.logged(s.api(s.handleEntries)))
	mux.HandleFunc("POST /api/load", s.logged(s.api(s.handleLoad)))
	mux.HandleFunc("POST /api/refresh", s.logged(s.api(s.handleRefresh)))
	mux.HandleFunc("GET /api/quota", s.logged(s.api(s.handleQuota)))
	mux.HandleFunc("PUT /api/settings/youtube-key", s.logged(s.api(s.handleYouTubeKey)))

	// The upgrade needs the raw writer, so /ws skips the logging wrapper.
	mux.HandleFunc("GET /ws", s.api(s.hub.ServeWS))
	return mux
}

func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes websocket clients and waits for background work.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	err := s.httpServer.Shutdown(ctx)
	s.cancel()
	s.tasks.Wait()
	return err
}

// background runs fn detached from the request that triggered it.
func (s *Server) background(fn func(ctx context.Context)) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		fn(s.ctx)
	}()
}

func (s *Server) logged(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next(rec, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

// page redirects anonymous visitors to the login form.
func (s *Server) page(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.guard.IsAuthenticated(r) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// api rejects anonymous callers with 401.
func (s *Server) api(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.guard.IsAuthenticated(r) {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type loginView struct {
	Error    string
	Username string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.guard.IsAuthenticated(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "login.html", loginView{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, "login.html", loginView{Error: "Invalid form"})
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	ip := s.guard.ClientIP(r)
	id, err := s.guard.Login(ip, username, r.PostFormValue("password"))
	switch {
	case stderrors.Is(err, ErrRateLimited):
		s.metrics.IncLogin("rate_limited")
		s.logger.Warn("Login rate limited", zap.String("ip", ip))
		s.render(w, http.StatusTooManyRequests, "login.html", loginView{Error: "Too many attempts, try again later", Username: username})
		return
	case err != nil:
		s.metrics.IncLogin("invalid")
		s.logger.Info("Login rejected", zap.String("ip", ip))
		s.render(w, http.StatusUnauthorized, "login.html", loginView{Error: "Invalid username or password", Username: username})
		return
	}

	s.metrics.IncLogin("ok")
	s.guard.SetCookie(w, id)
	s.logger.Info("User logged in", zap.String("ip", ip))

	if !s.dispatcher.Active() {
		s.background(s.reloadSavedInput)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) reloadSavedInput(ctx context.Context) {
	text, err := s.settings.InputText(ctx)
	if err != nil {
		s.logger.Warn("Failed to read saved input", zap.Error(err))
		return
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	n := s.dispatcher.LoadFromText(ctx, text)
	s.logger.Info("Saved channel list restored", zap.Int("entries", n))
	s.stopIfLoggedOut()
}

// stopIfLoggedOut undoes a timer armed by a background cycle that outlived the last session.
func (s *Server) stopIfLoggedOut() {
	if s.guard.ActiveSessions() == 0 && s.dispatcher.Active() {
		s.logger.Info("No active sessions after background cycle, stopping checks")
		s.dispatcher.Stop()
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if remaining := s.guard.Logout(w, r); remaining == 0 {
		s.dispatcher.Stop()
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

type indexView struct {
	Entries     []domain.MonitoredEntry
	LastChecked time.Time
	Active      bool
	Quota       quota.Usage
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view := indexView{
		Entries:     s.dispatcher.Entries(),
		LastChecked: s.dispatcher.LastChecked(),
		Active:      s.dispatcher.Active(),
	}
	if s.quota != nil {
		view.Quota = s.quota.Usage(r.Context())
	}
	s.render(w, http.StatusOK, "index.html", view)
}

type entriesResponse struct {
	Entries     []domain.MonitoredEntry `json:"entries"`
	LastChecked *time.Time              `json:"lastChecked,omitempty"`
	Active      bool                    `json:"active"`
}

func (s *Server) handleEntries(w http.ResponseWriter, _ *http.Request) {
	resp := entriesResponse{
		Entries: s.dispatcher.Entries(),
		Active:  s.dispatcher.Active(),
	}
	if ts := s.dispatcher.LastChecked(); !ts.IsZero() {
		resp.LastChecked = &ts
	}
	writeJSON(w, http.StatusOK, resp)
}

type loadRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, constants.WebConfig.MaxInputBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "input too large")
		return
	}

	text := string(body)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req loadRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		text = req.Text
	}

	s.background(func(ctx context.Context) {
		s.dispatcher.LoadFromText(ctx, text)
		s.stopIfLoggedOut()
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.background(func(ctx context.Context) {
		s.dispatcher.Refresh(ctx)
		s.stopIfLoggedOut()
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	if s.quota == nil {
		writeError(w, http.StatusNotFound, "quota tracking disabled")
		return
	}
	writeJSON(w, http.StatusOK, s.quota.Usage(r.Context()))
}

type youTubeKeyRequest struct {
	APIKey string `json:"apiKey"`
}

func (s *Server) handleYouTubeKey(w http.ResponseWriter, r *http.Request) {
	var req youTubeKeyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.settings.SaveYouTubeAPIKey(r.Context(), strings.TrimSpace(req.APIKey)); err != nil {
		s.logger.Error("Failed to save YouTube API key", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save key")
		return
	}
	s.logger.Info("YouTube API key updated", zap.Bool("cleared", strings.TrimSpace(req.APIKey) == ""))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("Template render failed", zap.String("template", name), zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func formatClock(t any) string {
	switch v := t.(type) {
	case time.Time:
		if v.IsZero() {
			return "-"
		}
		return util.FormatClock(v)
	case *time.Time:
		if v == nil || v.IsZero() {
			return "-"
		}
		return util.FormatClock(*v)
	}
	return "-"
}

func formatViewers(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
