package api

import (
	"github.com/alexivanou/georef/internal/service"
	"github.com/alexivanou/georef/internal/stats"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter creates a new HTTP router
func NewRouter(service service.ServiceInterface, statsCollector *stats.Collector, logger *zap.Logger) *mux.Router {
	handler := NewHandler(service, logger)
	statsHandler := NewStatsHandler(statsCollector, logger)

	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// API v1
	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/nearby", handler.Nearby).Methods("GET")
	v1.HandleFunc("/countries/{code:[A-Za-z]{2}}/localities", handler.FindLocalities).Methods("GET")
	v1.HandleFunc("/countries/{code:[A-Za-z]{2}}/admin1", handler.ListAdmin1).Methods("GET")
	v1.HandleFunc("/admin1/{id}/admin2", handler.ListAdmin2).Methods("GET")
	v1.HandleFunc("/postcodes/{code}", handler.FindPostcodes).Methods("GET")
	v1.HandleFunc("/stats", statsHandler.GetStats).Methods("GET")

	return router
}
