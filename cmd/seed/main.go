package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"dinespot/internal/database"
	"dinespot/internal/domain"
	"dinespot/internal/engagement"
	"dinespot/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "dinespot.db"
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM favorites")
	db.Exec("DELETE FROM reviews")
	db.Exec("DELETE FROM users")

	ctx := context.Background()
	users := repository.NewGormUserRepository(db)
	store := engagement.NewGormStore(db)

	// ================== USERS ==================
	log.Println("Creating users...")

	seedUsers := []struct {
		email, name string
	}{
		{"alice@dinespot.io", "Alice"},
		{"bob@dinespot.io", "Bob"},
		{"carol@dinespot.io", "Carol"},
	}

	userIDs := make(map[string]string)
	for _, su := range seedUsers {
		hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		now := time.Now().UTC()
		u := &domain.User{
			ID:           uuid.NewString(),
			Email:        su.email,
			PasswordHash: string(hash),
			Name:         su.name,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := users.Create(ctx, u); err != nil {
			log.Fatal("seed user failed:", err)
		}
		userIDs[su.name] = u.ID
	}

	// ================== REVIEWS ==================
	log.Println("Creating reviews...")

	restaurants := []struct {
		id, name, address string
	}{
		{"place-marios", "Mario's Pizza", "1 Main St"},
		{"place-sakura", "Sakura Sushi", "22 River Rd"},
		{"place-bistro", "Le Petit Bistro", "5 Hill Ave"},
	}

	seedReviews := []struct {
		user, restaurant, title, content string
		rating                           int
	}{
		{"Alice", "place-marios", "Best pizza in town", "The margherita is outstanding, thin crust and fresh basil.", 5},
		{"Bob", "place-marios", "", "Solid pizza but the wait on Friday nights is brutal.", 4},
		{"Carol", "place-marios", "Overrated", "Decent but nothing special for the price they charge.", 3},
		{"Alice", "place-sakura", "Fresh fish", "Every piece of nigiri tasted like it came off the boat today.", 5},
		{"Bob", "place-bistro", "Lovely evening", "Great wine list and the duck confit was perfect.", 5},
	}

	for _, sr := range seedReviews {
		_, err := store.CreateReview(ctx, engagement.CreateReviewParams{
			UserID:       userIDs[sr.user],
			RestaurantID: sr.restaurant,
			Rating:       sr.rating,
			Title:        sr.title,
			Content:      sr.content,
			UserName:     sr.user,
		})
		if err != nil {
			log.Fatal("seed review failed:", err)
		}
	}

	// ================== FAVORITES ==================
	log.Println("Creating favorites...")

	for _, r := range restaurants[:2] {
		_, err := store.ToggleFavorite(ctx, userIDs["Alice"], r.id, engagement.FavoriteSnapshot{
			Name:       r.name,
			Address:    r.address,
			Rating:     4.5,
			PriceLevel: 2,
		})
		if err != nil {
			log.Fatal("seed favorite failed:", err)
		}
	}

	for _, r := range restaurants {
		stats, err := store.GetReviewStats(ctx, r.id)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%-16s avg=%.1f ratings=%d\n", r.name, stats.AverageRating, stats.TotalRatings)
	}

	log.Println("Seed complete. All users log in with password123")
}
