// Package sqlite exposes the SQLite local storage backend while keeping its
// implementation internal.
package sqlite

import (
	"github.com/mesh-intelligence/pawcart/internal/sqlite"
	"github.com/mesh-intelligence/pawcart/pkg/types"
)

// NewBackend creates a new SQLite storage backend.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend()
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".pawcart-db",
//	})
//	defer backend.Detach()
func NewBackend() types.Backend {
	return sqlite.NewBackend()
}
