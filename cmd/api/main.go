package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dinespot/internal/config"
	"dinespot/internal/database"
	"dinespot/internal/engagement"
	"dinespot/internal/middleware"
	"dinespot/internal/modules/auth"
	"dinespot/internal/modules/favorite"
	"dinespot/internal/modules/feed"
	"dinespot/internal/modules/places"
	"dinespot/internal/modules/review"
	jwtsvc "dinespot/internal/pkg/jwt"
	"dinespot/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// The backend is bound exactly once, here. Everything above the
	// engagement.Repository interface behaves identically either way;
	// only durability across restarts differs.
	var (
		store engagement.Repository
		users repository.UserRepository
		db    *gorm.DB
	)
	switch cfg.StoreBackend {
	case config.BackendMemory:
		store = engagement.NewMemoryStore()
		users = repository.NewMemoryUserRepository()
		log.Println("engagement store: memory backend (non-durable)")
	case config.BackendDatabase:
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		if err := database.Migrate(db); err != nil {
			log.Fatal(err)
		}
		store = engagement.NewGormStore(db)
		users = repository.NewGormUserRepository(db)
		log.Println("engagement store: database backend")
	}

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	hub := feed.NewHub()
	defer hub.Close()

	authService := auth.NewService(users, j)
	authHandler := auth.NewHandler(authService)

	reviewService := review.NewService(store, users, hub)
	reviewHandler := review.NewHandler(reviewService)

	favoriteHandler := favorite.NewHandler(store)

	placesClient := places.NewClient(cfg.PlacesBaseURL, cfg.PlacesAPIKey)
	placesHandler := places.NewHandler(placesClient)

	feedHandler := feed.NewHandler(hub)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorLogger())

	v1 := r.Group("/api/v1")
	{
		// public
		authHandler.RegisterRoutes(v1, nil)
		reviewHandler.RegisterRoutes(v1, nil)
		placesHandler.RegisterRoutes(v1)
		feedHandler.RegisterRoutes(v1)

		// protected
		protected := v1.Group("/")
		protected.Use(middleware.JWTAuth(j))
		{
			authHandler.RegisterRoutes(nil, protected)
			reviewHandler.RegisterRoutes(nil, protected)
			favoriteHandler.RegisterRoutes(protected)
		}
	}

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
