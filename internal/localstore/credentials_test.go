package localstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksync/internal/models"
	"tasksync/internal/session"
)

func TestCredentialsEncryptToken(t *testing.T) {
	rdb, mr := newRedis(t)
	creds := NewCredentials(rdb, "credential-key")
	ctx := context.Background()

	_, ok, err := creds.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	in := session.Credentials{Token: "plain-token", User: models.User{ID: "1", Email: "c@example.com", Role: models.RoleAdmin, Password: "hash"}}
	require.NoError(t, creds.Save(ctx, in))

	raw, err := mr.Get(KeySession)
	require.NoError(t, err)
	assert.NotContains(t, raw, "plain-token")
	assert.NotContains(t, raw, "hash")

	out, ok, err := creds.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "plain-token", out.Token)
	assert.Equal(t, models.RoleAdmin, out.User.Role)

	_, _, err = NewCredentials(rdb, "other-key").Load(ctx)
	assert.Error(t, err)

	require.NoError(t, creds.Clear(ctx))
	_, ok, err = creds.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
