package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"coldstakepool/internal/api"
	"coldstakepool/internal/logging"
	"coldstakepool/internal/version"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(d *Daemon) *apiServer {
	srv := &apiServer{
		bind:   d.settings.StatusBind(),
		logger: d.logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/json", srv.handleStatus)
	mux.HandleFunc("/json/version", srv.handleVersion)
	mux.HandleFunc("/json/address/", srv.handleAddress)
	mux.HandleFunc("/json/blocks", srv.handleBlocks)
	mux.HandleFunc("/json/payouts", srv.handlePayouts)
	mux.HandleFunc("/", srv.handleNotFound)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("status api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("status api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("status api listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// handler exposes the mux for tests.
func (s *apiServer) handler() http.Handler {
	return s.server.Handler
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/json" {
		s.handleNotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	summary, err := s.daemon.store.Summary(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSummary(summary, s.daemon.settings, s.daemon.chain))
}

func (s *apiServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, api.VersionResponse{
		Pool: version.Version,
		Core: s.daemon.coreVersionString(r.Context()),
	})
}

func (s *apiServer) handleAddress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	address := strings.TrimPrefix(r.URL.Path, "/json/address/")
	if address == "" || strings.Contains(address, "/") {
		s.writeError(w, http.StatusNotFound, "address not found")
		return
	}
	participant, err := s.daemon.store.Participant(r.Context(), address)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if participant == nil {
		s.writeError(w, http.StatusNotFound, "address not found")
		return
	}
	payouts, err := s.daemon.store.PayoutsForAddress(r.Context(), address, 25)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromParticipant(participant, payouts))
}

func (s *apiServer) handleBlocks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	blocks, err := s.daemon.store.Blocks(r.Context(), queryLimit(r, 25))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response := api.BlocksResponse{Blocks: make([]api.BlockSummary, 0, len(blocks))}
	for _, block := range blocks {
		response.Blocks = append(response.Blocks, api.FromBlock(block))
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *apiServer) handlePayouts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	payouts, err := s.daemon.store.Payouts(r.Context(), queryLimit(r, 50))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response := api.PayoutsResponse{Payouts: make([]api.Payout, 0, len(payouts))}
	for _, payout := range payouts {
		response.Payouts = append(response.Payouts, api.FromPayout(payout))
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *apiServer) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeError(w, http.StatusNotFound, "not found")
}

func queryLimit(r *http.Request, fallback int) int {
	value := strings.TrimSpace(r.URL.Query().Get("limit"))
	if value == "" {
		return fallback
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.NewComponentLogger(s.logger, "status-api")
	}
	return logging.NewNop()
}
