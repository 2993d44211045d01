package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-registry/internal/web/handlers"
	"github.com/kozaktomas/face-registry/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	trainingHandler := handlers.NewTrainingHandler(s.service, s.logger)

	// Health check (no auth required)
	s.router.Get("/health", handlers.HealthCheck)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.RequireToken(s.config.Web.APIToken))

		// Recognition and enrollment
		r.Post("/recognize", trainingHandler.Recognize)
		r.Post("/register", trainingHandler.Register)

		// Training data management
		r.Get("/all_training_data", trainingHandler.AllTrainingData)
		r.Get("/get_training_data/{id}", trainingHandler.GetTrainingData)
		r.Delete("/delete_training_data/{id}/{filename}", trainingHandler.DeleteTrainingData)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONStatus(w, http.StatusNotFound, `{"message":"not found"}`)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONStatus(w, http.StatusMethodNotAllowed, `{"message":"method not allowed"}`)
	})
}

func writeJSONStatus(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body + "\n"))
}
