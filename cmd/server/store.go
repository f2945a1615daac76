package main

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"

	"storefront_back_end/internal/analytics"
	"storefront_back_end/internal/catalog"
	"storefront_back_end/internal/checkout"
	"storefront_back_end/internal/config"
	"storefront_back_end/internal/database"
)

// store regroupe les quatre ressources distantes
type store interface {
	catalog.ProductReader
	checkout.OrderWriter
	analytics.EventWriter
	analytics.EventReader
	Migrate(ctx context.Context) error
	Close() error
}

// eventStore : ressource analytics, éventuellement déportée dans Elasticsearch
type eventStore interface {
	analytics.EventWriter
	analytics.EventReader
}

func openStore(ctx context.Context, cfg *config.Config) (store, error) {
	switch cfg.StoreBackend {
	case "sqlite":
		return database.OpenSQL(ctx, database.DialectSQLite, cfg.SQLitePath)
	case "postgres":
		return database.OpenSQL(ctx, database.DialectPostgres, cfg.DatabaseURL)
	case "scylla":
		session, err := database.ConnectScylla(database.ScyllaConfig{
			Hosts:       cfg.ScyllaHosts,
			Keyspace:    cfg.ScyllaKeyspace,
			Username:    cfg.ScyllaUsername,
			Password:    cfg.ScyllaPassword,
			Timeout:     cfg.ScyllaTimeout,
			Consistency: gocql.Quorum,
		})
		if err != nil {
			return nil, err
		}
		return database.NewScyllaStore(session), nil
	}
	return nil, fmt.Errorf("STORE_BACKEND inconnu: %q", cfg.StoreBackend)
}

func openEvents(ctx context.Context, cfg *config.Config, db store) (eventStore, error) {
	if cfg.AnalyticsBackend != "elastic" {
		return db, nil
	}
	client, err := database.ConnectElastic(cfg.ElasticURL, cfg.ElasticUser, cfg.ElasticPassword)
	if err != nil {
		return nil, err
	}
	events := database.NewElasticEvents(client, cfg.ElasticIndex)
	if err := events.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	return events, nil
}
