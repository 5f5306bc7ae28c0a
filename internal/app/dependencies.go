package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/domain"
	"github.com/bonitasoft-presales/learn-and-go-btt/internal/service/candidates"
	"github.com/bonitasoft-presales/learn-and-go-btt/internal/service/directory"
	"github.com/bonitasoft-presales/learn-and-go-btt/internal/storage/memory"
	"github.com/bonitasoft-presales/learn-and-go-btt/internal/storage/postgres"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Requests   domain.RequestRepository
	Quotations domain.QuotationRepository
	Suppliers  domain.SupplierRepository
	Outbox     domain.OutboxRepository
	Timeline   domain.TimelineRepository
	// Directory — mock-справочник идентичностей. В production окружении
	// заменяется на клиента реального identity-провайдера.
	Directory *directory.MockService
	Resolver  *candidates.Resolver
	Logger    *log.Entry
	// Store не nil только при PostgreSQL-хранилище.
	Store *postgres.Store
}

// NewDependencies создаёт зависимости поверх in-memory хранилища.
func NewDependencies(logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	dir := directory.NewMockService()
	return &Dependencies{
		Requests:   memory.NewRequestRepository(),
		Quotations: memory.NewQuotationRepository(),
		Suppliers:  memory.NewSupplierRepository(),
		Outbox:     memory.NewOutboxRepository(),
		Timeline:   memory.NewTimelineRepository(),
		Directory:  dir,
		Resolver:   candidates.NewResolver(dir, logger.WithField("component", "candidates")),
		Logger:     logger,
	}
}

// NewPostgresDependencies создаёт зависимости поверх PostgreSQL.
// Схема применяется автоматически перед возвратом.
func NewPostgresDependencies(ctx context.Context, dsn string, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	dir := directory.NewMockService()
	return &Dependencies{
		Requests:   postgres.NewRequestRepository(store),
		Quotations: postgres.NewQuotationRepository(store),
		Suppliers:  postgres.NewSupplierRepository(store),
		Outbox:     postgres.NewOutboxRepository(store),
		Timeline:   postgres.NewTimelineRepository(store),
		Directory:  dir,
		Resolver:   candidates.NewResolver(dir, logger.WithField("component", "candidates")),
		Logger:     logger,
		Store:      store,
	}, nil
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() error {
	if d.Store != nil {
		return d.Store.Close()
	}
	return nil
}
