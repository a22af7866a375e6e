package errors

import (
	"errors"
	"fmt"
)

var (
	ErrShardNotFound            = errors.New("shard is not defined in the registry")
	ErrShardInactive            = errors.New("shard is not configured or inactive")
	ErrNoHealthyShards          = errors.New("no healthy shards available for query")
	ErrInvalidConfig            = errors.New("invalid sharding configuration")
	ErrUnsupportedHashAlgorithm = errors.New("unsupported hash algorithm")
	ErrUnsupportedStrategy      = errors.New("unsupported sharding strategy")
	ErrTableNotActive           = errors.New("shard table is not active")
	ErrShardPanic               = errors.New("shard collaborator panicked")
	ErrUnsupportedCatalogSource = errors.New("unsupported catalog source")
	ErrMissingRequiredFields    = errors.New("missing required fields")
	ErrEmptyCatalog             = errors.New("catalog document is empty")
)

// FetchingResourceError generates a formatted error for failed fetching of any resource by its type.
func FetchingResourceError(resource string) error {
	return fmt.Errorf("failed to fetch %s by id", resource)
}

func ConfigNotSetError(config string) error {
	return fmt.Errorf("the %s configuration value must be set", config)
}
