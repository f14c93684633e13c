//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"passtrack/internal/identity/store/revocation"
	"passtrack/pkg/testutil/containers"
)

func TestRedisTRL_RevokeAndCheck(t *testing.T) {
	ctx := context.Background()
	rc := containers.GetManager().GetRedis(t)
	require.NoError(t, rc.FlushAll(ctx))

	trl := revocation.NewRedisTRL(rc.Client)

	revoked, err := trl.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, trl.RevokeToken(ctx, "jti-1", time.Minute))

	revoked, err = trl.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = trl.IsTokenRevoked(ctx, "jti-2")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestRedisTRL_EntryExpiresWithTTL(t *testing.T) {
	ctx := context.Background()
	rc := containers.GetManager().GetRedis(t)
	require.NoError(t, rc.FlushAll(ctx))

	trl := revocation.NewRedisTRL(rc.Client)

	require.NoError(t, trl.RevokeToken(ctx, "ephemeral", 500*time.Millisecond))

	revoked, err := trl.IsTokenRevoked(ctx, "ephemeral")
	require.NoError(t, err)
	require.True(t, revoked)

	require.Eventually(t, func() bool {
		revoked, err := trl.IsTokenRevoked(ctx, "ephemeral")
		return err == nil && !revoked
	}, 5*time.Second, 100*time.Millisecond)
}

func TestRedisTRL_InvalidTTLRejected(t *testing.T) {
	ctx := context.Background()
	rc := containers.GetManager().GetRedis(t)

	trl := revocation.NewRedisTRL(rc.Client)
	require.Error(t, trl.RevokeToken(ctx, "jti", -time.Second))
}
