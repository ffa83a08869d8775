package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/inkwell/config"
	"github.com/rpupo63/inkwell/database"
	"github.com/rpupo63/inkwell/services"
	"github.com/rpupo63/inkwell/session"
)

type Server struct {
	*http.Server
	startupTime time.Time
}

func NewServer(database database.Database, gate *session.Gate, c map[string]string) (Server, error) {
	port := config.GetString(c, "PORT", "8080")
	address := fmt.Sprintf("0.0.0.0:%s", port) // Bind to 0.0.0.0 for external access

	startupTime := time.Now()

	tokens, err := newTokenIssuer(c)
	if err != nil {
		return Server{}, err
	}

	router := newRouter(database, gate, withConfig(c), withStartupTime(startupTime), withTokenIssuer(tokens))

	// Get timeout values from config with sensible defaults
	readTimeout := time.Duration(config.GetInt(c, "READ_TIMEOUT_SECONDS", 180)) * time.Second
	writeTimeout := time.Duration(config.GetInt(c, "WRITE_TIMEOUT_SECONDS", 180)) * time.Second
	idleTimeout := time.Duration(config.GetInt(c, "IDLE_TIMEOUT_SECONDS", 180)) * time.Second

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  readTimeout,  // Timeout for reading the entire request
		WriteTimeout: writeTimeout, // Timeout for writing the response
		IdleTimeout:  idleTimeout,  // Timeout for idle connections
	}

	return Server{server, startupTime}, nil
}

type router struct {
	config      map[string]string
	startupTime time.Time
	tokens      *tokenIssuer
	hosts       imageHostFactory
	logRequests bool
}

func withConfig(c map[string]string) func(*router) {
	return func(r *router) {
		r.config = c
	}
}

func withStartupTime(startupTime time.Time) func(*router) {
	return func(r *router) {
		r.startupTime = startupTime
	}
}

func withTokenIssuer(tokens tokenIssuer) func(*router) {
	return func(r *router) {
		r.tokens = &tokens
	}
}

func withImageHostFactory(hosts imageHostFactory) func(*router) {
	return func(r *router) {
		r.hosts = hosts
	}
}

func withoutRequestLogging() func(*router) {
	return func(r *router) {
		r.logRequests = false
	}
}

func newRouter(database database.Database, gate *session.Gate, opts ...func(*router)) *chi.Mux {
	router := router{
		startupTime: time.Now(),
		hosts:       services.NewImageHost,
		logRequests: true,
	}
	for _, opt := range opts {
		opt(&router)
	}

	if router.tokens == nil {
		tokens, err := newTokenIssuer(router.config)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not create session token issuer")
		}
		router.tokens = &tokens
	}

	chiRouter := chi.NewRouter()
	chiRouter.Use(LogInternalServerErrors)
	chiRouter.Use(middleware.RealIP)
	if router.logRequests {
		chiRouter.Use(ColoredHTTPLoggingMiddleware)
	}

	acceptedOrigins := config.GetList(router.config, "ACCEPTED_ORIGINS", nil)
	chiRouter.Use(corsMiddleware(acceptedOrigins))

	// Initialize all handlers
	handlers := initializeHandlers(database, gate, *router.tokens, router.hosts, router.startupTime)

	sessions := newSessionMiddleware(gate, *router.tokens)
	loginLimiter := newIPRateLimiter(config.GetInt(router.config, "LOGIN_RATE_PER_MINUTE", 5))

	setupRoutes(chiRouter, handlers, sessions, loginLimiter)

	return chiRouter
}

func (s Server) Start(errChannel chan<- error) {
	log.Info().Msgf("Server started on: %s", s.Addr)
	errChannel <- s.ListenAndServe()
}

func (s Server) ShutdownGracefully(timeout time.Duration) {
	log.Info().Msg("Gracefully shutting down...")

	gracefullCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(gracefullCtx); err != nil {
		log.Error().Msgf("Error shutting down the server: %v", err)
	} else {
		log.Info().Msg("HttpServer gracefully shut down")
	}
}
