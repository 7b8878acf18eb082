// Package di provides dependency injection container
package di

import (
	"github.com/ssargent/binstruct/pkg/api"     //nolint:depguard
	"github.com/ssargent/binstruct/pkg/catalog" //nolint:depguard
	"github.com/ssargent/binstruct/pkg/storage" //nolint:depguard
)

// CatalogLoader loads a struct catalog from a file
type CatalogLoader func(path string, opts ...catalog.Option) (*catalog.Catalog, error)

// StoreOpener opens the record store rooted at a directory
type StoreOpener func(path string, opts ...storage.Option) (*storage.RecordStore, error)

// Container holds all the dependencies for the application
type Container struct {
	serverFactory api.ServerFactory
	catalogLoader CatalogLoader
	storeOpener   StoreOpener
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		serverFactory: api.NewServerFactory(),
		catalogLoader: catalog.Load,
		storeOpener:   storage.NewRecordStore,
	}
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// GetCatalogLoader returns the catalog loader
func (c *Container) GetCatalogLoader() CatalogLoader {
	return c.catalogLoader
}

// SetCatalogLoader allows overriding the catalog loader (for testing)
func (c *Container) SetCatalogLoader(loader CatalogLoader) {
	c.catalogLoader = loader
}

// GetStoreOpener returns the record store opener
func (c *Container) GetStoreOpener() StoreOpener {
	return c.storeOpener
}

// SetStoreOpener allows overriding the record store opener (for testing)
func (c *Container) SetStoreOpener(opener StoreOpener) {
	c.storeOpener = opener
}
