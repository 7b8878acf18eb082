package api

import (
	"context"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/ssargent/binstruct/pkg/binstruct"
)

// StructCatalog resolves struct names to compiled definitions
type StructCatalog interface {
	Names() []string
	Lookup(name string) (*binstruct.Struct, error)
}

// RecordStore persists encoded records by struct name
type RecordStore interface {
	Create(structName string, data []byte) (ksuid.KSUID, error)
	Read(structName string, id ksuid.KSUID) ([]byte, error)
	Update(structName string, id ksuid.KSUID, data []byte) error
	Delete(structName string, id ksuid.KSUID) error
	List(structName string) ([]ksuid.KSUID, error)
}

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves the API until ctx is cancelled
	StartServer(ctx context.Context, catalog StructCatalog, store RecordStore, config ServerConfig) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter that logs to logger
	CreateServerStarter(logger *zap.Logger) ServerStarter
}
