package badger

import (
	"context"
	"testing"

	"github.com/marmos91/dittocloud/pkg/state"
	statetesting "github.com/marmos91/dittocloud/pkg/state/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerStore(t *testing.T) {
	suite := &statetesting.StoreTestSuite{
		NewStore: func(t *testing.T) state.Store {
			s, err := New(context.Background(), Config{DBPath: t.TempDir()})
			require.NoError(t, err)
			return s
		},
	}
	suite.Run(t)
}

func TestBadgerStorePersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := New(ctx, Config{DBPath: dir})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, state.State{ID: 77, Path: "/Phone/Music"}))
	require.NoError(t, s.Close())

	reopened, err := New(ctx, Config{DBPath: dir})
	require.NoError(t, err)
	defer reopened.Close()

	got, found, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, state.State{ID: 77, Path: "/Phone/Music"}, got)
}

func TestBadgerInMemory(t *testing.T) {
	s, err := New(context.Background(), Config{InMemory: true})
	require.NoError(t, err)
	defer s.Close()

	_, found, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}
