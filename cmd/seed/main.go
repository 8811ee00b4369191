// Command seed loads a starter catalog into the storefront database. Products
// whose name already exists are skipped, so the command can be rerun safely.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/VishalVrk/rfid-cart/internal/repository/postgres"
	"github.com/VishalVrk/rfid-cart/internal/repository/postgres/migrations"
	"github.com/VishalVrk/rfid-cart/internal/service"
	"github.com/VishalVrk/rfid-cart/pkg/config"
	"github.com/VishalVrk/rfid-cart/pkg/database"
	apperrors "github.com/VishalVrk/rfid-cart/pkg/errors"
	"github.com/VishalVrk/rfid-cart/pkg/logger"
)

type seedConfig struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"trolley"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"trolley_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"trolley"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// File is an optional JSON array of products replacing the built-in set.
	File string `env:"SEED_FILE"`
}

// defaultCatalog matches the tag names the trolley firmware reports.
var defaultCatalog = []service.CreateProductInput{
	{Name: "Apple", Price: 2.00, Category: "fruit", Stock: 120, Rating: 4.5, Description: "Crisp red apples"},
	{Name: "Banana", Price: 0.50, Category: "fruit", Stock: 200, Rating: 4.2, Description: "Ripe yellow bananas"},
	{Name: "Mango", Price: 1.50, Category: "fruit", Stock: 80, Rating: 4.8, Description: "Alphonso mangoes"},
	{Name: "Milk", Price: 1.20, Category: "dairy", Stock: 60, Rating: 4.0, Description: "Toned milk, 1 litre"},
	{Name: "Bread", Price: 1.10, Category: "bakery", Stock: 40, Rating: 3.9, Description: "Whole wheat loaf"},
	{Name: "Eggs", Price: 2.40, Category: "dairy", Stock: 50, Rating: 4.1, Description: "Free range, dozen"},
	{Name: "Rice", Price: 6.75, Category: "staples", Stock: 30, Rating: 4.6, Description: "Basmati rice, 5 kg"},
	{Name: "Chocolate", Price: 1.99, Category: "snacks", Stock: 90, Rating: 4.7, Description: "Dark chocolate bar"},
}

func main() {
	var cfg seedConfig
	if err := config.Load(&cfg); err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("trolley-seed", cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg seedConfig, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	products := defaultCatalog
	if cfg.File != "" {
		loaded, err := readCatalog(cfg.File)
		if err != nil {
			return err
		}
		products = loaded
	}

	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL

	pool, err := database.NewPostgresPool(ctx, &pgCfg, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	catalog := service.NewCatalogService(postgres.NewProductRepository(pool), log)
	created, skipped := 0, 0
	for i := range products {
		_, err := catalog.CreateProduct(ctx, &products[i])
		switch {
		case err == nil:
			created++
		case errors.Is(err, apperrors.ErrAlreadyExists):
			skipped++
		default:
			return fmt.Errorf("seed product %q: %w", products[i].Name, err)
		}
	}

	log.Info("catalog seeded",
		slog.Int("created", created),
		slog.Int("skipped", skipped),
	)
	return nil
}

// seedProduct is one entry of a seed file.
type seedProduct struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Stock       int     `json:"stock"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url"`
	Rating      float64 `json:"rating"`
}

func readCatalog(path string) ([]service.CreateProductInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var entries []seedProduct
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	products := make([]service.CreateProductInput, 0, len(entries))
	for _, e := range entries {
		products = append(products, service.CreateProductInput(e))
	}
	return products, nil
}
