package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/contaluz/contaluz/pkg/advisor"
	"github.com/contaluz/contaluz/pkg/common"
	"github.com/contaluz/contaluz/pkg/log"
	"github.com/contaluz/contaluz/pkg/tracker"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/levenlabs/go-lflag"
)

const (
	authTokenCookie = "auth_token"
	maxBodyBytes    = 1 << 20
	maxImageBytes   = 8 << 20
)

type contextKey string

const (
	subjectContextKey contextKey = "subject"
)

// tokenVerifier is a function that validates an OIDC ID Token.
type tokenVerifier func(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)

// Server exposes a household's tracker and advisor over a JSON API.
type Server struct {
	tracker *tracker.Tracker
	advisor advisor.Advisor

	listenAddr string
	httpServer *http.Server

	oidcVerifiers map[string]tokenVerifier
	serverName    string
	syncDelay     time.Duration
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(t *tracker.Tracker, a advisor.Advisor) *Server {
	srv := &Server{
		tracker:    t,
		advisor:    a,
		serverName: "contaluz",
	}
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	oidcAudience := lflag.String("oidc-audience", "", "Google client ID to validate id tokens against (empty disables auth)")
	syncDelay := lflag.Duration("sync-delay", 0, "Pause before a meter sync is applied, for clients that show progress")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		srv.syncDelay = *syncDelay
		if *oidcAudience != "" {
			provider, err := oidc.NewProvider(context.Background(), "https://accounts.google.com")
			if err != nil {
				log.Ctx(context.Background()).Error("failed to initialize Google OIDC provider", slog.Any("error", err))
				os.Exit(1)
			}
			srv.oidcVerifiers = map[string]tokenVerifier{
				"google": provider.Verifier(&oidc.Config{ClientID: *oidcAudience}).Verify,
			}
		}
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/state", s.handleGetState)
	apiMux.HandleFunc("GET /api/projection", s.handleGetProjection)
	apiMux.HandleFunc("GET /api/catalog", s.handleGetCatalog)

	apiMux.HandleFunc("GET /api/appliances", s.handleListAppliances)
	apiMux.HandleFunc("POST /api/appliances", s.handleAddAppliance)
	apiMux.HandleFunc("POST /api/appliances/preset", s.handleAddPreset)
	apiMux.HandleFunc("POST /api/appliances/scan", s.handleScanPlate)
	apiMux.HandleFunc("PUT /api/appliances/{id}", s.handleUpdateAppliance)
	apiMux.HandleFunc("DELETE /api/appliances/{id}", s.handleRemoveAppliance)
	apiMux.HandleFunc("POST /api/appliances/{id}/toggle", s.handleToggleAppliance)

	apiMux.HandleFunc("POST /api/recharge", s.handleRecharge)
	apiMux.HandleFunc("GET /api/recharges", s.handleListRecharges)
	apiMux.HandleFunc("POST /api/sync", s.handleSync)
	apiMux.HandleFunc("PUT /api/balance", s.handleSetBalance)

	apiMux.HandleFunc("GET /api/alerts", s.handleListAlerts)
	apiMux.HandleFunc("POST /api/alerts/{id}/read", s.handleMarkAlertRead)
	apiMux.HandleFunc("DELETE /api/alerts/{id}", s.handleRemoveAlert)
	apiMux.HandleFunc("DELETE /api/alerts", s.handleClearAlerts)

	apiMux.HandleFunc("GET /api/profile", s.handleGetProfile)
	apiMux.HandleFunc("POST /api/profile", s.handleUpdateProfile)
	apiMux.HandleFunc("POST /api/profile/notifications", s.handleSetNotifications)
	apiMux.HandleFunc("POST /api/reset", s.handleReset)

	apiMux.HandleFunc("GET /api/tips", s.handleTips)
	apiMux.HandleFunc("GET /api/insight", s.handleInsight)
	apiMux.HandleFunc("POST /api/strategy", s.handleStrategy)
	apiMux.HandleFunc("GET /api/locations", s.handleLocations)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.authMiddleware(apiMux))
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.revisionMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(mux)))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

// decodeJSON reads the request body into v. On failure it writes the error
// response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, limit int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Ctx(r.Context()).WarnContext(r.Context(), "failed to decode request body", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// writeTrackerError maps tracker errors to status codes.
func writeTrackerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		writeJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, tracker.ErrInvalidRecharge),
		errors.Is(err, tracker.ErrInvalidBalance),
		errors.Is(err, tracker.ErrInvalidAppliance),
		errors.Is(err, tracker.ErrInvalidProfile):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		log.Ctx(r.Context()).ErrorContext(r.Context(), "request failed", slog.Any("error", err))
		writeJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok " + common.Version())); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}
