package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"salesprobe/adapters/store"
	"salesprobe/internal/config"
	"salesprobe/internal/migration"
)

// Usage: migrate [database_url [driver]]
// Without arguments the connection comes from DATABASE_URL and DB_DRIVER.
func main() {
	cfg, err := config.Load(os.Getenv("SALESPROBE_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if len(os.Args) > 1 {
		cfg.Database.URL = os.Args[1]
	}
	if len(os.Args) > 2 {
		cfg.Database.Driver = os.Args[2]
	}
	if err := cfg.ValidateDatabase(); err != nil {
		log.Fatal("Usage: migrate <database_url> [postgres|mysql] (or set DATABASE_URL)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	runner := migration.NewRunner()
	log.Printf("Applying schema version %s on %s", runner.Version(), db.DriverName())
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Migration complete")
}
