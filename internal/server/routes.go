package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/handlers"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/middlewares"
)

// objectID keeps tag routes from swallowing the literal "tags" segment of
// record routes.
const objectID = "{id:[0-9a-f]{24}}"

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	r.Use(middlewares.Cors(s.cfg.AllowedOrigins))
	r.Use(s.limiter.RateLimit)
	r.Use(s.metrics.Instrument)

	ch := handlers.NewCommonHandler(s.db)
	r.HandleFunc("/", ch.HelloWorldHandler)
	r.HandleFunc("/health", ch.HealthHandler)
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	s.registerTagRoutes(r)
	s.registerTaggingRoutes(r)

	return r
}

func (s *Server) registerTagRoutes(r *mux.Router) {
	th := handlers.NewTagHandler(s.registry, s.tagService)
	r.HandleFunc("/api/{type}/tags/{context}", th.GetTags).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/{type}/tags/{context}/"+objectID, th.GetTag).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/{type}/tags/{context}/"+objectID, th.UpdateTag).Methods("PUT", "OPTIONS")
	r.HandleFunc("/api/{type}/tags/{context}/"+objectID, th.DeleteTag).Methods("DELETE", "OPTIONS")
}

func (s *Server) registerTaggingRoutes(r *mux.Router) {
	th := handlers.NewTaggingHandler(s.registry, s.taggingService)
	r.HandleFunc("/api/{type}/tagged", th.TaggedWith).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/{type}/{id}/tags", th.DestroyTaggings).Methods("DELETE", "OPTIONS")
	r.HandleFunc("/api/{type}/{id}/tags/{context}", th.GetTagList).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/{type}/{id}/tags/{context}", th.SetTagList).Methods("PUT", "OPTIONS")
	r.HandleFunc("/api/{type}/{id}/tags/{context}", th.UpdateTagList).Methods("PATCH", "OPTIONS")
}
