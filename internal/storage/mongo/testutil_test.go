package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

// setupTestDB creates a MongoDB container for testing, connects and
// applies the collection indexes. Returns a cleanup function that must
// be called after tests complete.
func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err, "failed to start mongodb container")

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err, "failed to get connection string")

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := NewDB(connectCtx, uri, "rider_analytics_test")
	require.NoError(t, err, "failed to connect")

	require.NoError(t, db.EnsureIndexes(ctx), "failed to create indexes")

	cleanup := func() {
		_ = db.Close(ctx)
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}
