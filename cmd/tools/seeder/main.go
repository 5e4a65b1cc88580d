package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/kopi-pos/internal/app"
	"github.com/noah-isme/kopi-pos/internal/common"
	"github.com/noah-isme/kopi-pos/internal/config"
	"github.com/noah-isme/kopi-pos/internal/db"
	"github.com/noah-isme/kopi-pos/internal/obs"
)

type seedProduct struct {
	category string
	name     string
	price    int64
}

var categories = []string{"Coffee", "Non Coffee", "Snacks"}

var products = []seedProduct{
	{"Coffee", "Espresso", 18000},
	{"Coffee", "Americano", 22000},
	{"Coffee", "Cafe Latte", 28000},
	{"Coffee", "Kopi Susu Gula Aren", 25000},
	{"Non Coffee", "Matcha Latte", 30000},
	{"Non Coffee", "Chocolate", 27000},
	{"Snacks", "Croissant", 20000},
	{"Snacks", "Pisang Goreng", 15000},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "seeder").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	q := db.New(pool)

	if err := seedAdmin(ctx, q, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed admin")
	}
	if err := seedMenu(ctx, q, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed menu")
	}
	if _, err := q.UpdateStoreSettings(ctx, db.UpdateStoreSettingsParams{
		StoreName:              envOrDefault("SEED_STORE_NAME", "Kopi Kita"),
		StoreAddress:           envOrDefault("SEED_STORE_ADDRESS", "Jakarta"),
		NewMemberPromoActive:   true,
		NewMemberDiscountType:  "percent",
		NewMemberDiscountValue: decimal.NewFromInt(10),
	}); err != nil {
		logger.Fatal().Err(err).Msg("seed store settings")
	}
	logger.Info().Msg("seed complete")
}

func seedAdmin(ctx context.Context, q *db.Queries, logger zerolog.Logger) error {
	email := strings.ToLower(envOrDefault("SEED_ADMIN_EMAIL", "admin@kopi.local"))
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "changeme123"
		logger.Warn().Msg("SEED_ADMIN_PASSWORD not set, using the development default")
	}
	hash, err := app.HashPassword(password)
	if err != nil {
		return err
	}
	staff, err := q.UpsertStaffUser(ctx, db.UpsertStaffUserParams{
		Email:        email,
		Name:         "Administrator",
		PasswordHash: hash,
		Role:         common.RoleAdmin,
	})
	if err != nil {
		return err
	}
	logger.Info().Str("email", staff.Email).Msg("admin user ready")
	return nil
}

// seedMenu inserts categories and any product whose name is not on the menu yet.
func seedMenu(ctx context.Context, q *db.Queries, logger zerolog.Logger) error {
	ids := make(map[string]db.Category, len(categories))
	for i, name := range categories {
		c, err := q.UpsertCategory(ctx, name, int32(i+1))
		if err != nil {
			return err
		}
		ids[name] = c
	}
	existing, err := q.ListMenuProducts(ctx, true)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		seen[p.Name] = struct{}{}
	}
	created := 0
	for _, p := range products {
		if _, ok := seen[p.name]; ok {
			continue
		}
		categoryID := ids[p.category].ID
		if _, err := q.CreateProduct(ctx, db.CreateProductParams{
			CategoryID:  &categoryID,
			Name:        p.name,
			Price:       p.price,
			IsAvailable: true,
		}); err != nil {
			return err
		}
		created++
	}
	logger.Info().Int("created", created).Msg("menu seeded")
	return nil
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
