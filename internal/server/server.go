package server

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/config"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/database"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/middlewares"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/repositories"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/services"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/taggable"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/tagtype"
)

type Server struct {
	port           int
	httpServer     *http.Server
	cfg            *config.Config
	db             database.Service
	registry       *taggable.Registry
	taggingService services.TaggingService
	tagService     services.TagService
	limiter        *middlewares.RateLimiter
	metrics        *middlewares.PrometheusMiddleware
}

// NewRegistry declares every entity type and context listed in cfg.
func NewRegistry(cfg *config.Config) *taggable.Registry {
	registry := taggable.NewRegistry(&cfg.Tagging)

	contexts := cfg.Contexts()
	names := make([]string, 0, len(contexts))
	for name := range contexts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		registry.Register(name).Taggable(tagtype.Options{}, contexts[name]...)
		log.Info().Str("taggable_type", name).Strs("contexts", contexts[name]).Msg("Registered taggable type")
	}
	return registry
}

// ensureIndexes creates the indexes of every distinct collection pair in use.
func ensureIndexes(ctx context.Context, db database.Service, registry *taggable.Registry) error {
	done := make(map[[2]string]bool)
	for _, typ := range registry.Types() {
		for _, def := range typ.TagTypes() {
			pair := [2]string{def.TagsCollection(), def.TaggingsCollection()}
			if done[pair] {
				continue
			}
			if err := db.EnsureIndexes(ctx, pair[0], pair[1]); err != nil {
				return fmt.Errorf("failed to ensure indexes on %s/%s: %w", pair[0], pair[1], err)
			}
			done[pair] = true
		}
	}
	return nil
}

func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.New(cfg)
	if err != nil {
		return nil, err
	}

	registry := NewRegistry(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := ensureIndexes(ctx, db, registry); err != nil {
		log.Error().Err(err).Msg("Failed to prepare collections")
		return nil, err
	}

	tagRepo := repositories.NewTagRepository(db)
	taggingRepo := repositories.NewTaggingRepository(db)

	s := &Server{
		port:           cfg.Port,
		cfg:            cfg,
		db:             db,
		registry:       registry,
		taggingService: services.NewTaggingService(tagRepo, taggingRepo),
		tagService:     services.NewTagService(tagRepo, taggingRepo),
		limiter:        middlewares.NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		metrics:        middlewares.NewPrometheusMiddleware(),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, nil
}

func (s *Server) Start() error {
	log.Info().Int("port", s.port).Msg("Starting server")
	return s.httpServer.ListenAndServe()
}

// CleanupVisitors prunes idle rate limiter entries until ctx is done.
func (s *Server) CleanupVisitors(ctx context.Context) {
	s.limiter.CleanupVisitors(ctx)
}

func (s *Server) GracefulShutdown(done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info().Msg("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown with error")
	}
	if err := s.db.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to disconnect from MongoDB")
	}

	log.Info().Msg("Server exiting")
	done <- true
}
