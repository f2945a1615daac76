// Commande seed : charge un catalogue JSON dans le store configuré.
//
//	go run ./cmd/seed -file products.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"storefront_back_end/internal/cache"
	"storefront_back_end/internal/config"
	"storefront_back_end/internal/database"
	"storefront_back_end/internal/models"
	"storefront_back_end/internal/services"
)

// seedProduct : image_file désigne une image locale à déposer dans MinIO
type seedProduct struct {
	models.Product
	ImageFile string `json:"image_file"`
}

type productWriter interface {
	InsertProduct(ctx context.Context, p models.Product) (models.Product, error)
	Migrate(ctx context.Context) error
	Close() error
}

func main() {
	file := flag.String("file", "products.json", "catalogue JSON à charger")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration invalide: %v", err)
	}
	ctx := context.Background()

	products, err := readProducts(*file)
	if err != nil {
		log.Fatalf("❌ Lecture %s: %v", *file, err)
	}

	db, err := openWriter(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Store %s indisponible: %v", cfg.StoreBackend, err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("❌ Migration: %v", err)
	}

	var images *services.ImageStore
	if cfg.MinioEndpoint != "" {
		client, err := database.ConnectMinIO(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Printf("⚠️ MinIO indisponible, images locales ignorées: %v", err)
		} else {
			images = services.NewImageStore(client, cfg.MinioBucket, cfg.ImageURLTTL)
		}
	}

	inserted := 0
	for _, sp := range products {
		p := sp.Product
		if sp.ImageFile != "" && images != nil {
			key, err := uploadImage(ctx, images, filepath.Join(filepath.Dir(*file), sp.ImageFile))
			if err != nil {
				log.Printf("⚠️ Image %s non déposée: %v", sp.ImageFile, err)
			} else {
				p.ImageURL = key
			}
		}

		saved, err := db.InsertProduct(ctx, p)
		if err != nil {
			log.Printf("❌ Produit %s non inséré: %v", p.Name, err)
			continue
		}
		inserted++
		log.Printf("✅ Produit chargé: %s (%s)", saved.Name, saved.ID)
	}

	if cfg.RedisHost != "" {
		if client, err := database.ConnectRedis(ctx, cfg.RedisHost, cfg.RedisPassword); err == nil {
			cache.NewProductCache(client, cfg.ProductCacheTTL).Invalidate(ctx)
			_ = client.Close()
		}
	}

	log.Printf("📦 %d/%d produits chargés", inserted, len(products))
}

func readProducts(path string) ([]seedProduct, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var products []seedProduct
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("JSON invalide: %w", err)
	}
	for i, p := range products {
		if p.Name == "" || p.Price < 0 || p.Stock < 0 {
			return nil, fmt.Errorf("produit %d invalide (nom requis, prix et stock positifs)", i)
		}
		if p.ID == "" {
			products[i].ID = productID(p.Name)
		}
	}
	return products, nil
}

// productID dérive un id stable du nom : relancer le seed met à jour au
// lieu de dupliquer
func productID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("storefront/products/"+name)).String()
}

func uploadImage(ctx context.Context, images *services.ImageStore, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	return images.Upload(ctx, "products/"+filepath.Base(path), f, info.Size(), mime.TypeByExtension(filepath.Ext(path)))
}

func openWriter(ctx context.Context, cfg *config.Config) (productWriter, error) {
	switch cfg.StoreBackend {
	case "sqlite":
		return database.OpenSQL(ctx, database.DialectSQLite, cfg.SQLitePath)
	case "postgres":
		return database.OpenSQL(ctx, database.DialectPostgres, cfg.DatabaseURL)
	case "scylla":
		session, err := database.ConnectScylla(database.ScyllaConfig{
			Hosts:    cfg.ScyllaHosts,
			Keyspace: cfg.ScyllaKeyspace,
			Username: cfg.ScyllaUsername,
			Password: cfg.ScyllaPassword,
			Timeout:  cfg.ScyllaTimeout,
		})
		if err != nil {
			return nil, err
		}
		return database.NewScyllaStore(session), nil
	}
	return nil, fmt.Errorf("STORE_BACKEND inconnu: %q", cfg.StoreBackend)
}
