package shared

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCleanupNilStoreIsNoop(t *testing.T) {
	var store *IdempotencyStore
	require.NoError(t, store.Cleanup(context.Background(), time.Hour))
	require.NoError(t, store.Delete(context.Background(), "pos:sale:T1-0001"))
}

func TestCleanupLoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var store *IdempotencyStore

	done := make(chan struct{})
	go func() {
		store.CleanupLoop(ctx, nil, time.Millisecond, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}
