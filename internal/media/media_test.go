package media_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuscode/sessiond/internal/media"
)

func TestClientGrant(t *testing.T) {
	_, err := media.ClientGrant{Granted: false}.Acquire(context.Background())
	assert.ErrorIs(t, err, media.ErrPermissionDenied)

	stream, err := media.ClientGrant{Granted: true}.Acquire(context.Background())
	require.NoError(t, err)
	assert.NoError(t, stream.Release())
}

func TestClientGrantHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := media.ClientGrant{Granted: true}.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
