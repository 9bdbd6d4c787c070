// Package server exposes a Bot over HTTP: the command, status and callback
// webhooks the platform calls, plus health and debug endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/botkit/internal/accounts"
	"github.com/ziadkadry99/botkit/internal/bots"
	"github.com/ziadkadry99/botkit/internal/callbacks"
	"github.com/ziadkadry99/botkit/internal/events"
	"github.com/ziadkadry99/botkit/internal/logging"
	"github.com/ziadkadry99/botkit/internal/models"
	"github.com/ziadkadry99/botkit/internal/verify"
)

const maxBodyBytes = 32 << 20

// Config holds server configuration.
type Config struct {
	Host     string
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
	// VerifyRequests checks the platform's signed Authorization header on
	// every webhook.
	VerifyRequests bool
	// EventStream enables GET /debug/events.
	EventStream bool
	// DisabledMessage is shown to users when the bot rejects a command.
	DisabledMessage string
}

// Server serves the platform webhooks for one Bot.
type Server struct {
	cfg        Config
	bot        *bots.Bot
	hub        *events.Hub
	log        *slog.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a server for bot. hub may be nil when the event stream is off.
func New(cfg Config, bot *bots.Bot, hub *events.Hub, log *slog.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	if cfg.DisabledMessage == "" {
		cfg.DisabledMessage = "Bot is temporarily unavailable"
	}
	s := &Server{
		cfg: cfg,
		bot: bot,
		hub: hub,
		log: log.With("component", "server"),
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.log.Handler(), slog.LevelDebug),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Post("/command", s.handleCommand)
		r.Get("/status", s.handleStatus)
		r.Post("/notification/callback", s.handleCallback)
	})

	if s.cfg.EventStream && s.hub != nil {
		r.Get("/debug/events", s.handleEvents)
	}
	return r
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "reading body: "+err.Error(), http.StatusBadRequest)
		return
	}

	_, err = s.bot.AsyncExecuteRawCommand(r.Context(), raw, r.Header, s.cfg.VerifyRequests)
	if err != nil {
		s.writeIngestError(w, "command", err)
		return
	}
	writeJSON(w, http.StatusAccepted, bots.BuildCommandAcceptedResponse())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.bot.RawGetStatus(r.Context(), r.URL.Query(), r.Header, s.cfg.VerifyRequests)
	if err != nil {
		s.writeIngestError(w, "status", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "reading body: "+err.Error(), http.StatusBadRequest)
		return
	}

	err = s.bot.SetRawBotXMethodResult(r.Context(), raw, r.Header, s.cfg.VerifyRequests)
	var notFound *callbacks.CallbackNotFoundError
	switch {
	case err == nil:
	case errors.As(err, &notFound):
		// The waiter timed out or the callback belongs to another process.
		s.log.Warn("Callback for unknown sync_id", "sync_id", notFound.SyncID)
	default:
		s.writeIngestError(w, "callback", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

// writeIngestError maps a webhook failure onto the response the platform
// understands.
func (s *Server) writeIngestError(w http.ResponseWriter, what string, err error) {
	var (
		unverified  *verify.UnverifiedRequestError
		noHeaders   *verify.RequestHeadersNotProvidedError
		unknownBot  *accounts.UnknownBotAccountError
		unsupported *models.UnsupportedBotAPIVersionError
	)
	switch {
	case errors.As(err, &unverified), errors.As(err, &noHeaders):
		s.log.Warn("Rejected unverified request", "webhook", what, "err", err)
		writeJSON(w, http.StatusUnauthorized, bots.BuildUnverifiedRequestResponse("Verification failed"))
	case errors.As(err, &unknownBot):
		s.log.Warn("Request for unknown bot account", "webhook", what, "bot_id", unknownBot.BotID)
		writeJSON(w, http.StatusServiceUnavailable, bots.BuildBotDisabledResponse(s.cfg.DisabledMessage))
	case errors.As(err, &unsupported):
		s.log.Warn("Unsupported Bot API version", "webhook", what, "version", unsupported.Version)
		writeJSON(w, http.StatusServiceUnavailable,
			bots.BuildBotDisabledResponse(fmt.Sprintf("Unsupported Bot API version: %d", unsupported.Version)))
	default:
		s.log.Warn("Invalid webhook payload", "webhook", what, "err", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "reason": err.Error()})
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleEvents streams lifecycle events as JSON websocket messages until
// the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reads only detect the client closing the socket.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.log.Debug("Event stream read failed", "err", err)
				}
				return
			}
		}
	}()

	stream, unsubscribe := s.hub.Subscribe(ctx, 0)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-stream:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "hub closed"))
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				s.log.Debug("Event stream write failed", "err", err)
				return
			}
		}
	}
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.log.Info("Listening for platform webhooks", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
