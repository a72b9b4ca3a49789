package shared

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLocker struct {
	mu       sync.Mutex
	acquired []string
	released []string
	failOn   string
}

func (l *recordingLocker) Acquire(_ context.Context, key string) (func(), error) {
	if key == l.failOn {
		return nil, errors.New("busy")
	}
	l.mu.Lock()
	l.acquired = append(l.acquired, key)
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		l.released = append(l.released, key)
		l.mu.Unlock()
	}, nil
}

func TestAcquireAll_SortedAndDeduplicated(t *testing.T) {
	l := &recordingLocker{}
	release, err := AcquireAll(context.Background(), l, "account:b", "account:a", "account:b")
	require.NoError(t, err)
	assert.Equal(t, []string{"account:a", "account:b"}, l.acquired)

	release()
	assert.Equal(t, []string{"account:b", "account:a"}, l.released)
}

func TestAcquireAll_ReleasesOnFailure(t *testing.T) {
	l := &recordingLocker{failOn: "account:c"}
	_, err := AcquireAll(context.Background(), l, "account:c", "account:a", "account:b")
	require.Error(t, err)
	assert.Equal(t, []string{"account:a", "account:b"}, l.acquired)
	assert.Equal(t, []string{"account:b", "account:a"}, l.released)
}
