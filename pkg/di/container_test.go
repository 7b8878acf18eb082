package di

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/binstruct/pkg/api"
	"github.com/ssargent/binstruct/pkg/catalog"
	"github.com/ssargent/binstruct/pkg/storage"
)

func TestNewContainer(t *testing.T) {
	c := NewContainer()
	require.NotNil(t, c.GetServerFactory())
	require.NotNil(t, c.GetCatalogLoader())
	require.NotNil(t, c.GetStoreOpener())

	s, err := c.GetStoreOpener()(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestContainerOverrides(t *testing.T) {
	c := NewContainer()

	errBoom := errors.New("boom")
	c.SetCatalogLoader(func(string, ...catalog.Option) (*catalog.Catalog, error) {
		return nil, errBoom
	})
	_, err := c.GetCatalogLoader()("structs.yaml")
	assert.ErrorIs(t, err, errBoom)

	c.SetStoreOpener(func(string, ...storage.Option) (*storage.RecordStore, error) {
		return nil, errBoom
	})
	_, err = c.GetStoreOpener()("data")
	assert.ErrorIs(t, err, errBoom)

	factory := api.NewServerFactory()
	c.SetServerFactory(factory)
	assert.Same(t, factory, c.GetServerFactory())
}
