package state

import (
	"context"
	"fmt"
)

// Open builds the Store for a backend name ("json" or "sqlite").
func Open(ctx context.Context, backend, path string) (Store, error) {
	switch backend {
	case "", "json":
		return NewJSONStore(path), nil
	case "sqlite":
		return OpenSQLite(ctx, path)
	default:
		return nil, fmt.Errorf("unknown state backend '%s'", backend)
	}
}
