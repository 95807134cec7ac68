// Command pos-seed loads starting data (staff, tables, menu, stock, customers)
// from a YAML file into the configured database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"restaurant-pos/internal/admin"
	"restaurant-pos/internal/auth"
	"restaurant-pos/internal/config"
	"restaurant-pos/internal/database"
	"restaurant-pos/internal/database/migrations"
	"restaurant-pos/internal/lock"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/media"
	"restaurant-pos/internal/menu"
	"restaurant-pos/internal/qr"
	"restaurant-pos/internal/seed"
	"restaurant-pos/internal/store"
)

func main() {
	path := flag.String("file", "seed.yaml", "path to the seed file")
	flag.Parse()

	log := logger.New(logger.Options{Name: "pos-seed", MinLevel: logger.ParseLevel(os.Getenv("LOG_LEVEL"))})
	defer log.Close()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("CONFIG", err.Error())
	}

	in, err := os.Open(*path)
	if err != nil {
		log.Fatal("SEED", fmt.Sprintf("Failed to open seed file: %v", err))
	}
	defer in.Close()

	f, err := seed.Parse(in)
	if err != nil {
		log.Fatal("SEED", err.Error())
	}

	ctx := context.Background()
	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{Driver: cfg.Database.Driver, AutoMigrate: true}, log)
	if err := runner.RunMigrations(); err != nil {
		log.Fatal("MIGRATION", fmt.Sprintf("Failed to apply migrations: %v", err))
	}

	db := store.New(bunDB)
	authSvc := auth.NewService(db, nil, auth.NewTokenSigner(cfg.Auth.JWTSecret), cfg.Auth.SessionTTL, log)
	codes := qr.NewQRGenerator(cfg.Receipt.Secret, cfg.Receipt.PublicBaseURL)
	seeder := seed.NewSeeder(
		admin.NewService(db, authSvc, lock.NewMemory(), codes, log),
		menu.NewService(db, media.NewMemoryStorage(cfg.Receipt.PublicBaseURL+"/media"), log),
		log,
	)

	if _, err := seeder.Apply(ctx, f); err != nil {
		log.Fatal("SEED", err.Error())
	}
	log.Info("SEED", "✅ Done.")
}
