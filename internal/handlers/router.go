package handlers

import (
	"net/http"
	"time"

	"vape-market-backend/internal/middleware"
	"vape-market-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Deps are the services the HTTP API is built on
type Deps struct {
	Identity       *services.IdentityService
	Listings       *services.ListingService
	Votes          *services.VoteService
	Views          *services.ViewService
	Hub            *services.WSHub
	BotToken       string
	InitDataMaxAge time.Duration
	AllowedOrigins []string
}

// NewRouter wires every route of the Mini App API
func NewRouter(d Deps) http.Handler {
	authHandler := NewAuthHandler(d.Identity, d.BotToken, d.InitDataMaxAge)
	listingHandler := NewListingHandler(d.Listings, d.Votes, d.Views, d.Hub)
	userHandler := NewUserHandler(d.Votes)
	wsHandler := NewWebSocketHandler(d.Hub, d.Identity, nil)

	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(d.AllowedOrigins))

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/telegram", authHandler.Telegram)
		r.Get("/categories", listingHandler.Categories)
		r.Get("/listings", listingHandler.List)
		r.Get("/listings/{listing_id}", listingHandler.Get)
		r.Post("/listings/{listing_id}/views", listingHandler.RecordView)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(d.Identity))
			r.Post("/listings", listingHandler.Create)
			r.Post("/listings/{listing_id}/vote", listingHandler.Vote)
			r.Get("/me", userHandler.Me)
			r.Get("/me/votes", userHandler.MyVotes)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	return r
}
