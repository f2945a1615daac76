package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"storefront_back_end/internal/database"
	"storefront_back_end/internal/models"
)

var ErrProductNotFound = errors.New("produit introuvable")

var tracer = otel.Tracer("storefront_back_end/internal/catalog")

type ProductReader interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (models.Product, error)
}

type Cache interface {
	Get(ctx context.Context) ([]models.Product, bool)
	Set(ctx context.Context, products []models.Product)
}

type ImageSigner interface {
	SignedURL(ctx context.Context, imageURL string) string
}

// Service lit le catalogue : cache Redis devant le store, images signées à la sortie
type Service struct {
	products ProductReader
	cache    Cache
	images   ImageSigner
}

func NewService(products ProductReader, cache Cache, images ImageSigner) *Service {
	return &Service{products: products, cache: cache, images: images}
}

// List retourne les produits du plus récent au plus ancien ; vide si le store échoue
func (s *Service) List(ctx context.Context) []models.Product {
	ctx, span := tracer.Start(ctx, "catalog.List")
	defer span.End()

	if s.cache != nil {
		if products, ok := s.cache.Get(ctx); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return s.sign(ctx, products)
		}
	}

	products, err := s.products.ListProducts(ctx)
	if err != nil {
		span.RecordError(err)
		log.Printf("❌ Erreur chargement catalogue: %v", err)
		return []models.Product{}
	}
	if s.cache != nil {
		s.cache.Set(ctx, products)
	}
	return s.sign(ctx, products)
}

// Get retourne un produit par id
func (s *Service) Get(ctx context.Context, id string) (models.Product, error) {
	p, err := s.products.GetProduct(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return models.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	if err != nil {
		return models.Product{}, err
	}
	if s.images != nil {
		p.ImageURL = s.images.SignedURL(ctx, p.ImageURL)
	}
	return p, nil
}

// sign copie la liste pour ne jamais modifier ce qui sort du cache
func (s *Service) sign(ctx context.Context, products []models.Product) []models.Product {
	out := make([]models.Product, len(products))
	copy(out, products)
	if s.images == nil {
		return out
	}
	for i := range out {
		out[i].ImageURL = s.images.SignedURL(ctx, out[i].ImageURL)
	}
	return out
}
