package api

import (
	"context"

	"go.uber.org/zap"
)

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct{}

// NewServerFactory creates a new server factory
func NewServerFactory() ServerFactory {
	return &DefaultServerFactory{}
}

// CreateServerStarter creates a server starter
func (f *DefaultServerFactory) CreateServerStarter(logger *zap.Logger) ServerStarter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultServerStarter{logger: logger}
}

// DefaultServerStarter is the default implementation of ServerStarter
type DefaultServerStarter struct {
	logger *zap.Logger
}

// StartServer starts the API server with the given configuration
func (s *DefaultServerStarter) StartServer(
	ctx context.Context,
	catalog StructCatalog,
	store RecordStore,
	config ServerConfig,
) error {
	server := NewServer(catalog, store, config, NewMetrics(), s.logger)
	return server.ListenAndServe(ctx)
}
