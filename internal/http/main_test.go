//go:build integration

package http

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guttosm/shell-cache/internal/repository"
	"github.com/guttosm/shell-cache/internal/testutil"
)

// TestMain sets up a shared MongoDB container for all HTTP integration tests in this package.
func TestMain(m *testing.M) {
	os.Exit(testutil.SetupTestMainWithMongoDB(context.Background(), m))
}

// newMongoStorage opens storage in a database private to the test.
func newMongoStorage(t *testing.T) *repository.MongoStorage {
	t.Helper()
	db, err := repository.NewMongoDB(testutil.GetSharedContainerURI(), testutil.SanitizeDBName(t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx := context.Background()
		_ = db.Database.Drop(ctx)
		_ = db.Close(ctx)
	})
	return repository.NewMongoStorage(db)
}
