package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

const DefaultImageURLTTL = time.Hour

// ImageStore signe et dépose les images produits dans un bucket MinIO
type ImageStore struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

func NewImageStore(client *minio.Client, bucket string, ttl time.Duration) *ImageStore {
	if ttl <= 0 {
		ttl = DefaultImageURLTTL
	}
	return &ImageStore{client: client, bucket: bucket, ttl: ttl}
}

func isAbsoluteURL(raw string) bool {
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}

// SignedURL transforme une clé d'objet en URL GET présignée.
// Les URLs absolues et les valeurs vides sont renvoyées telles quelles, une
// erreur de signature aussi (loguée).
func (s *ImageStore) SignedURL(ctx context.Context, imageURL string) string {
	if s == nil || s.client == nil || imageURL == "" || isAbsoluteURL(imageURL) {
		return imageURL
	}

	key := strings.TrimPrefix(imageURL, "/")
	key = strings.TrimPrefix(key, s.bucket+"/")

	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.ttl, make(url.Values))
	if err != nil {
		log.Printf("⚠️ Signature image %s impossible: %v", key, err)
		return imageURL
	}
	return presignedURL.String()
}

// Upload dépose une image et retourne sa clé d'objet
func (s *ImageStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if s == nil || s.client == nil {
		return "", fmt.Errorf("MinIO non initialisé")
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}
