package migrate_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/db/dbtest"
	"storefront/internal/migrate"
)

func TestApplyIsIdempotentAndReversible(t *testing.T) {
	if os.Getenv("TEST_DB_DSN") != "" {
		t.Skip("rolls the schema back; needs a private container")
	}
	ctx := context.Background()
	pool := dbtest.Pool(t)

	require.NoError(t, migrate.Apply(ctx, pool))
	v, dirty, err := migrate.Version(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
	assert.False(t, dirty)

	require.NoError(t, migrate.Down(ctx, pool))
	v, _, err = migrate.Version(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, uint(0), v)

	require.NoError(t, migrate.Apply(ctx, pool))
}
