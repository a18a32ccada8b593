package state_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"retitle/internal/state"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s state.Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "job", "missing")
	assert.True(t, errors.Is(err, state.ErrNotFound))

	require.NoError(t, s.Set(ctx, "job", "a", []byte(`{"jobId":"a"}`)))
	require.NoError(t, s.Set(ctx, "job", "b", []byte(`{"jobId":"b"}`)))
	require.NoError(t, s.Set(ctx, "other", "a", []byte(`{"jobId":"x"}`)))

	got, err := s.Get(ctx, "job", "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"jobId":"a"}`, string(got))

	// Set replaces wholesale
	require.NoError(t, s.Set(ctx, "job", "a", []byte(`{"jobId":"a","status":"FAILED"}`)))
	got, err = s.Get(ctx, "job", "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"jobId":"a","status":"FAILED"}`, string(got))

	all, err := s.List(ctx, "job")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.Delete(ctx, "job", "a"))
	require.NoError(t, s.Delete(ctx, "job", "a"), "deleting an absent key succeeds")

	_, err = s.Get(ctx, "job", "a")
	assert.True(t, errors.Is(err, state.ErrNotFound))

	all, err = s.List(ctx, "job")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	empty, err := s.List(ctx, "nothing-here")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
