package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTimeZone      = "Asia/Kolkata"
	DefaultAuditSchedule = "0 * * * *"
	DefaultUploadDir     = "./uploads"
	DefaultServicesFile  = "../services.yaml"
	DefaultDBDriver      = "postgres"
	DefaultMaxOpenConns  = 10
	DefaultS3Region      = "ap-south-1"
	DefaultLogLevel      = "info"

	TemplateStoreLocal = "local"
	TemplateStoreS3    = "s3"

	CatalogPostgres = "postgres"
	CatalogYAML     = "yaml"
)

// Config is the process configuration read from the environment.
type Config struct {
	DBDriver        string
	DBUser          string
	DBPassword      string
	DBHost          string
	DBPort          string
	DBName          string
	DBSSLMode       string
	DBDSN           string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	UploadDir     string
	TemplateStore string
	S3Bucket      string
	S3Region      string
	S3Prefix      string
	S3BaseURL     string

	Catalog     string
	CatalogPath string

	Workers      int
	LogLevel     string
	TimeZone     string
	ServicesFile string
}

// Load reads the configuration from environment variables, applying defaults.
func Load() (*Config, error) {
	c := &Config{
		DBDriver:      env("DB_DRIVER", DefaultDBDriver),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBHost:        os.Getenv("DB_HOST"),
		DBPort:        env("DB_PORT", "5432"),
		DBName:        os.Getenv("DB_NAME"),
		DBSSLMode:     env("DB_SSLMODE", "disable"),
		DBDSN:         os.Getenv("DB_DSN"),
		UploadDir:     env("UPLOAD_DIR", DefaultUploadDir),
		TemplateStore: strings.ToLower(env("TEMPLATE_STORE", TemplateStoreLocal)),
		S3Bucket:      os.Getenv("TEMPLATE_S3_BUCKET"),
		S3Region:      env("TEMPLATE_S3_REGION", DefaultS3Region),
		S3Prefix:      os.Getenv("TEMPLATE_S3_PREFIX"),
		S3BaseURL:     os.Getenv("TEMPLATE_S3_BASE_URL"),
		Catalog:       strings.ToLower(env("CATALOG", CatalogPostgres)),
		CatalogPath:   os.Getenv("CATALOG_PATH"),
		LogLevel:      env("LOG_LEVEL", DefaultLogLevel),
		TimeZone:      env("TZ_NAME", DefaultTimeZone),
		ServicesFile:  env("SERVICES_FILE", DefaultServicesFile),
	}

	var err error
	if c.MaxOpenConns, err = envInt("DB_MAX_OPEN_CONNS", DefaultMaxOpenConns); err != nil {
		return nil, err
	}
	if c.MaxIdleConns, err = envInt("DB_MAX_IDLE_CONNS", c.MaxOpenConns); err != nil {
		return nil, err
	}
	if c.Workers, err = envInt("REPORT_WORKERS", c.MaxOpenConns); err != nil {
		return nil, err
	}
	if v := os.Getenv("DB_CONN_MAX_LIFETIME"); v != "" {
		if c.ConnMaxLifetime, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("DB_CONN_MAX_LIFETIME: %w", err)
		}
	}

	switch c.TemplateStore {
	case TemplateStoreLocal:
	case TemplateStoreS3:
		if c.S3Bucket == "" {
			return nil, fmt.Errorf("TEMPLATE_S3_BUCKET is required when TEMPLATE_STORE=s3")
		}
	default:
		return nil, fmt.Errorf("unknown TEMPLATE_STORE %q", c.TemplateStore)
	}
	switch c.Catalog {
	case CatalogPostgres:
	case CatalogYAML:
		if c.CatalogPath == "" {
			return nil, fmt.Errorf("CATALOG_PATH is required when CATALOG=yaml")
		}
	default:
		return nil, fmt.Errorf("unknown CATALOG %q", c.Catalog)
	}
	return c, nil
}

// DataSourceName returns DB_DSN when set, otherwise a DSN assembled from the
// DB_* parts in the form the driver expects.
func (c *Config) DataSourceName() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	if c.DBDriver == "sqlite3" {
		return c.DBName
	}
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// PostgresURL is the URL form used by pgxpool for the catalog.
func (c *Config) PostgresURL() string {
	if strings.HasPrefix(c.DBDSN, "postgres://") || strings.HasPrefix(c.DBDSN, "postgresql://") {
		return c.DBDSN
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// Location resolves TimeZone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}
