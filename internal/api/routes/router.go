package routes

import (
	"net/http"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/api/handlers"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/api/middleware"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	searchHandler      *handlers.SearchHandler
	interactionHandler *handlers.InteractionHandler
	profileHandler     *handlers.ProfileHandler
}

// NewRouter creates a new router
func NewRouter(
	searchHandler *handlers.SearchHandler,
	interactionHandler *handlers.InteractionHandler,
	profileHandler *handlers.ProfileHandler,
) *Router {
	return &Router{
		mux: http.NewServeMux(),

		searchHandler:      searchHandler,
		interactionHandler: interactionHandler,
		profileHandler:     profileHandler,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Search endpoints
	r.mux.HandleFunc("POST /api/v1/search", r.searchHandler.Search)
	r.mux.HandleFunc("GET /api/v1/search/zero-results", r.searchHandler.GetZeroResultQueries)

	// Learning endpoints
	r.mux.HandleFunc("POST /api/v1/interactions", r.interactionHandler.RecordInteraction)

	// Profile endpoints
	r.mux.HandleFunc("GET /api/v1/profile", r.profileHandler.GetProfile)
	r.mux.HandleFunc("DELETE /api/v1/profile/learning-data", r.profileHandler.ResetLearningData)

	// Middleware applies in reverse order; CORS wraps everything so even
	// error responses carry the headers.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
