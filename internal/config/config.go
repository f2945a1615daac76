package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	// sqlite, postgres ou scylla
	StoreBackend string `env:"STORE_BACKEND" envDefault:"sqlite"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"./storefront.db"`
	DatabaseURL  string `env:"DATABASE_URL"`

	ScyllaHosts    []string      `env:"SCYLLA_HOSTS" envSeparator:","`
	ScyllaKeyspace string        `env:"SCYLLA_KEYSPACE" envDefault:"storefront"`
	ScyllaUsername string        `env:"SCYLLA_USERNAME"`
	ScyllaPassword string        `env:"SCYLLA_PASSWORD"`
	ScyllaTimeout  time.Duration `env:"SCYLLA_TIMEOUT" envDefault:"5s"`

	// store ou elastic
	AnalyticsBackend string `env:"ANALYTICS_BACKEND" envDefault:"store"`
	ElasticURL       string `env:"ELASTIC_URL"`
	ElasticUser      string `env:"ELASTIC_USER"`
	ElasticPassword  string `env:"ELASTIC_PASSWORD"`
	ElasticIndex     string `env:"ELASTIC_INDEX" envDefault:"analytics"`

	RedisHost       string        `env:"REDIS_HOST"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	ProductCacheTTL time.Duration `env:"PRODUCT_CACHE_TTL" envDefault:"10m"`

	MinioEndpoint  string        `env:"MINIO_ENDPOINT"`
	MinioAccessKey string        `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string        `env:"MINIO_SECRET_KEY"`
	MinioUseSSL    bool          `env:"MINIO_USE_SSL" envDefault:"false"`
	MinioBucket    string        `env:"MINIO_BUCKET" envDefault:"storefront-images"`
	ImageURLTTL    time.Duration `env:"IMAGE_URL_TTL" envDefault:"1h"`

	SessionSecret  string        `env:"SESSION_SECRET"`
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"24h"`
	CORSOrigins    []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	EventTimeout time.Duration `env:"EVENT_TIMEOUT" envDefault:"5s"`
	AnalyticsTZ  string        `env:"ANALYTICS_TZ" envDefault:"Local"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"noreply@storefront.local"`

	OtelEndpoint string `env:"OTEL_ENDPOINT"`
}

// Load charge le fichier .env s'il existe puis lit les variables d'environnement
func Load() (*Config, error) {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé — on continue avec les variables d'environnement du système")
	} else {
		log.Println("✅ Fichier .env chargé avec succès")
	}
	return Parse()
}

// Parse lit uniquement l'environnement (utilisé par les tests)
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	c.AnalyticsBackend = strings.ToLower(strings.TrimSpace(c.AnalyticsBackend))

	switch c.StoreBackend {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH requis pour STORE_BACKEND=sqlite")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL requis pour STORE_BACKEND=postgres")
		}
	case "scylla":
		if len(c.ScyllaHosts) == 0 {
			return fmt.Errorf("SCYLLA_HOSTS requis pour STORE_BACKEND=scylla")
		}
	default:
		return fmt.Errorf("STORE_BACKEND inconnu: %q", c.StoreBackend)
	}

	switch c.AnalyticsBackend {
	case "store":
	case "elastic":
		if c.ElasticURL == "" {
			return fmt.Errorf("ELASTIC_URL requis pour ANALYTICS_BACKEND=elastic")
		}
	default:
		return fmt.Errorf("ANALYTICS_BACKEND inconnu: %q", c.AnalyticsBackend)
	}
	return nil
}

// Location retourne le fuseau utilisé pour les créneaux horaires des analytics
func (c *Config) Location() *time.Location {
	if c.AnalyticsTZ == "" || strings.EqualFold(c.AnalyticsTZ, "Local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.AnalyticsTZ)
	if err != nil {
		log.Printf("⚠️ ANALYTICS_TZ invalide (%s), fuseau local utilisé", c.AnalyticsTZ)
		return time.Local
	}
	return loc
}
