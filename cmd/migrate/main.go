// migrate applies or rolls back the embedded schema migrations.
// Run: go run ./cmd/migrate [up|down]
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ErlanBelekov/recircular-api/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/recircular-api/migrations"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	switch direction {
	case "up":
		if err := postgres.Migrate(dbURL, migrations.FS); err != nil {
			log.Fatalf("migrate up: %v", err)
		}
	case "down":
		if err := postgres.MigrateDown(dbURL, migrations.FS); err != nil {
			log.Fatalf("migrate down: %v", err)
		}
	default:
		log.Fatalf("unknown direction %q, want up or down", direction)
	}

	fmt.Printf("migrations %s: done\n", direction)
}
