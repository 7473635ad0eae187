package main

import (
	"net/http"

	"github.com/gorilla/mux"
)

// setupRoutes configures all HTTP routes for the API
func setupRoutes(router *mux.Router, s *server) {
	// Auth endpoints
	router.HandleFunc("/api/auth/register", s.registerUser).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", s.loginUser).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/profile", s.getProfile).Methods(http.MethodGet)

	// Event endpoints
	router.HandleFunc("/api/events", s.getEvents).Methods(http.MethodGet)
	router.HandleFunc("/api/events/trending/popular", s.getTrendingEvents).Methods(http.MethodGet)
	router.HandleFunc("/api/events/{id}", s.getEventDetail).Methods(http.MethodGet)

	// Bet endpoints
	router.HandleFunc("/api/bets", s.createBet).Methods(http.MethodPost)
	router.HandleFunc("/api/bets/preview", s.previewBet).Methods(http.MethodPost)
	router.HandleFunc("/api/bets/my-bets", s.getMyBets).Methods(http.MethodGet)
	router.HandleFunc("/api/bets/dashboard", s.getDashboard).Methods(http.MethodGet)
	router.HandleFunc("/api/bets/{id}", s.cancelBet).Methods(http.MethodDelete)

	// Health and stats endpoints
	router.HandleFunc("/health", s.getHealthStatus).Methods(http.MethodGet)
	router.HandleFunc("/stats", s.getStats).Methods(http.MethodGet)

	// Cache management endpoints
	router.HandleFunc("/cache", s.getCacheDump).Methods(http.MethodGet)

	// Help endpoint
	router.HandleFunc("/", s.helpHandler)
}
