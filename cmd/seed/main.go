// seed inserts activated demo users and active offers around central
// Santiago into the local dev database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ErlanBelekov/recircular-api/internal/domain"
	"github.com/ErlanBelekov/recircular-api/internal/geo"
	"github.com/ErlanBelekov/recircular-api/internal/infrastructure/postgres"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const seedPassword = "recircular"

var center = geo.Point{Lat: -33.4372, Lng: -70.6506} // Plaza de Armas

type userSpec struct {
	name  string
	email string
}

var users = []userSpec{
	{"Ana Seed", "ana@seed.local"},
	{"Bruno Seed", "bruno@seed.local"},
	{"Carla Seed", "carla@seed.local"},
}

type offerSpec struct {
	owner      int
	bearingDeg float64
	distanceKm float64
	comuna     string
	items      []domain.Item
}

var offers = []offerSpec{
	// Inside the default 200 m search radius
	{0, 0, 0.05, "Santiago", []domain.Item{{Denomination: 1000, Quantity: 5}}},
	{1, 90, 0.12, "Santiago", []domain.Item{{Denomination: 500, Quantity: 10}, {Denomination: 100, Quantity: 20}}},
	{2, 200, 0.18, "Santiago", []domain.Item{{Denomination: 2000, Quantity: 2}}},

	// Reachable with a wider radiusKm
	{0, 45, 1.5, "Providencia", []domain.Item{{Denomination: 5000, Quantity: 1}}},
	{1, 160, 3, "Ñuñoa", []domain.Item{{Denomination: 10, Quantity: 50}, {Denomination: 50, Quantity: 20}}},
	{2, 300, 8, "Pudahuel", []domain.Item{{Denomination: 10000, Quantity: 1}}},
}

func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		pool.Close()
		log.Fatalf("hash password: %v", err)
	}

	// Upsert activated users
	userIDs := make([]string, len(users))
	for i, u := range users {
		err := pool.QueryRow(ctx, `
			INSERT INTO users (name, email, password_hash, is_active)
			VALUES ($1, $2, $3, TRUE)
			ON CONFLICT (email) DO UPDATE SET updated_at = NOW()
			RETURNING id`,
			u.name, u.email, string(hash),
		).Scan(&userIDs[i])
		if err != nil {
			pool.Close()
			log.Fatalf("upsert user %s: %v", u.email, err)
		}
	}

	// Offers go through the repository so the PostGIS encoding matches the API.
	offerRepo := postgres.NewOfferRepository(pool)
	var created int
	for _, spec := range offers {
		p := geo.Destination(center, spec.bearingDeg, spec.distanceKm)
		comuna := spec.comuna
		_, err := offerRepo.Create(ctx, &domain.Offer{
			OwnerID:  userIDs[spec.owner],
			Items:    spec.items,
			Location: domain.Location{Lat: p.Lat, Lng: p.Lng, Comuna: &comuna},
			Status:   domain.OfferActive,
		})
		if err != nil {
			pool.Close()
			log.Fatalf("insert offer: %v", err)
		}
		created++
	}

	pool.Close()

	fmt.Println("Seed complete")
	fmt.Println()
	for i, u := range users {
		fmt.Printf("  %-12s %-20s %s\n", u.name, u.email, userIDs[i])
	}
	fmt.Printf("  Password:       %s\n", seedPassword)
	fmt.Printf("  Offers created: %d\n", created)
	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Printf("  curl -s -X POST http://localhost:4000/api/auth/login \\\n")
	fmt.Printf("    -H 'Content-Type: application/json' \\\n")
	fmt.Printf("    -d '{\"email\":\"%s\",\"password\":\"%s\"}'\n", users[1].email, seedPassword)
	fmt.Println()
	fmt.Printf("  curl -s 'http://localhost:4000/api/offers/nearby?lat=%.4f&lng=%.4f'\n", center.Lat, center.Lng)
	fmt.Printf("  curl -s 'http://localhost:4000/api/offers/nearby?lat=%.4f&lng=%.4f&radiusKm=10'\n", center.Lat, center.Lng)
}
