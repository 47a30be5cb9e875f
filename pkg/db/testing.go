package db

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/db/models"
)

// NewTestClient opens a private in-memory sqlite database with the full schema migrated.
func NewTestClient(t testing.TB) *Client {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := Open(sqlite.Open(dsn))
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	client := &Client{conn: conn}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
