package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"bingetracker/handlers"
)

// Register mounts API endpoints onto the provided router. A nil limiter
// leaves sign-up and sign-in unthrottled.
func Register(
	r *mux.Router,
	authHandler *handlers.AuthHandler,
	bingesHandler *handlers.BingesHandler,
	catalogHandler *handlers.CatalogHandler,
	users UserResolver,
	limiter *IPRateLimiter,
) {
	api := r.PathPrefix("/api").Subrouter()

	// Auth routes (no authentication required)
	public := api.PathPrefix("/auth").Subrouter()
	if limiter != nil {
		public.Use(limiter.Middleware)
	}
	public.HandleFunc("/signup", authHandler.SignUp).Methods(http.MethodPost)
	public.HandleFunc("/signup", handlers.Options).Methods(http.MethodOptions)
	public.HandleFunc("/login", authHandler.SignIn).Methods(http.MethodPost)
	public.HandleFunc("/login", handlers.Options).Methods(http.MethodOptions)

	// Protected routes - require authentication
	protected := api.PathPrefix("").Subrouter()
	protected.Use(AuthMiddleware(users))

	protected.HandleFunc("/auth/logout", authHandler.SignOut).Methods(http.MethodPost)
	protected.HandleFunc("/auth/logout", handlers.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/auth/me", authHandler.Me).Methods(http.MethodGet)
	protected.HandleFunc("/auth/me", handlers.Options).Methods(http.MethodOptions)

	// Catalog browsing
	protected.HandleFunc("/catalog", catalogHandler.View).Methods(http.MethodGet)
	protected.HandleFunc("/catalog", handlers.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/catalog/popular", catalogHandler.LoadPopular).Methods(http.MethodPost)
	protected.HandleFunc("/catalog/popular", handlers.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/catalog/search", catalogHandler.Search).Methods(http.MethodGet)
	protected.HandleFunc("/catalog/search", handlers.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/catalog/view", catalogHandler.UpdateView).Methods(http.MethodPut)
	protected.HandleFunc("/catalog/view", handlers.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/catalog/events", catalogHandler.Events).Methods(http.MethodGet)

	// Binges
	protected.HandleFunc("/binges", bingesHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/binges", bingesHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/binges", handlers.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/binges/view", bingesHandler.UpdateView).Methods(http.MethodPut)
	protected.HandleFunc("/binges/view", handlers.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/binges/events", bingesHandler.Events).Methods(http.MethodGet)
	protected.HandleFunc("/binges/{bingeID}", bingesHandler.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/binges/{bingeID}", handlers.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/binges/{bingeID}/items", bingesHandler.AddItem).Methods(http.MethodPost)
	protected.HandleFunc("/binges/{bingeID}/items", handlers.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/binges/{bingeID}/movies/{movieID}/watched", bingesHandler.SetMovieWatched).Methods(http.MethodPut)
	protected.HandleFunc("/binges/{bingeID}/movies/{movieID}/watched", handlers.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/binges/{bingeID}/shows/{showID}/seasons/{season}/episodes/{episode}/watched", bingesHandler.SetEpisodeWatched).Methods(http.MethodPut)
	protected.HandleFunc("/binges/{bingeID}/shows/{showID}/seasons/{season}/episodes/{episode}/watched", handlers.Options).Methods(http.MethodOptions)
}
