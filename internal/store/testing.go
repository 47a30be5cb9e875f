package store

import (
	"testing"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/db"
)

// NewTestStore returns a store over a fresh in-memory sqlite schema.
func NewTestStore(t testing.TB, opts Options) *Store {
	t.Helper()
	client := db.NewTestClient(t)
	return New(client.DB(), opts)
}
