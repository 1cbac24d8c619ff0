package main

import (
	"SheetReports/internal/appmanager"
	"SheetReports/internal/catalog"
	"SheetReports/internal/config"
	"SheetReports/internal/datastore"
	"SheetReports/internal/logger"
	"SheetReports/internal/report"
	"SheetReports/internal/resource"
	"SheetReports/internal/storage"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// InitDataStore opens the database the mapping SQL runs against.
func InitDataStore(cfg *config.Config) (*datastore.Store, error) {
	return datastore.Open(cfg.DBDriver, cfg.DataSourceName(), datastore.PoolOptions{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
}

type catalogs interface {
	report.MappingCatalog
	report.UploadCatalog
}

// InitCatalog returns the mapping and upload catalog and a close func.
func InitCatalog(ctx context.Context, cfg *config.Config) (catalogs, func(), error) {
	if cfg.Catalog == config.CatalogYAML {
		mem, err := catalog.LoadYAML(cfg.CatalogPath)
		if err != nil {
			return nil, nil, err
		}
		return mem, func() {}, nil
	}
	pool, err := pgxpool.New(ctx, cfg.PostgresURL())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to pgxpool DB: %w", err)
	}
	return catalog.NewPostgres(pool), pool.Close, nil
}

func InitTemplateStore(ctx context.Context, cfg *config.Config) (report.TemplateStore, error) {
	if cfg.TemplateStore == config.TemplateStoreS3 {
		return storage.NewS3(ctx, storage.S3Options{
			Bucket:  cfg.S3Bucket,
			Region:  cfg.S3Region,
			Prefix:  cfg.S3Prefix,
			BaseURL: cfg.S3BaseURL,
		})
	}
	return storage.NewLocal(cfg.UploadDir), nil
}

func main() {
	// Load .env for local dev
	_ = godotenv.Load("../.env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := InitDataStore(cfg)
	if err != nil {
		log.Fatal("failed to open data store: ", err)
	}
	defer store.Close()
	if err := store.Ping(ctx); err != nil {
		log.Println("[ERROR] data store not reachable yet:", err)
	}

	cat, closeCatalog, err := InitCatalog(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open catalog: ", err)
	}
	defer closeCatalog()

	templates, err := InitTemplateStore(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open template store: ", err)
	}

	engine := report.New(cat, cat, templates, store, report.Options{Workers: cfg.Workers})
	appmanager.SetDependencies(appmanager.Dependencies{
		Engine:    engine,
		Uploads:   cat,
		Store:     templates,
		Resources: map[string]resource.Pinger{"datastore": store},
	})

	manager := appmanager.NewAppManager()

	// Load service configs from YAML
	servicesCfg, err := appmanager.LoadServiceSequence(cfg.ServicesFile)
	if err != nil {
		log.Fatal("failed to load service sequence: ", err)
	}
	manager.AutoRegisterServices(servicesCfg)

	if err := manager.StartAll(); err != nil {
		log.Fatal("failed to start: ", err)
	}

	// Graceful shutdown handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	if err := manager.StopAll(); err != nil {
		log.Println("[ERROR] failed to stop:", err)
	}
}
