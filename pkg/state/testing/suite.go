package testing

import (
	"context"
	"testing"

	"github.com/marmos91/dittocloud/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite checks the state.Store contract.
//
// Usage:
//
//	suite := &testing.StoreTestSuite{
//	    NewStore: func(t *testing.T) state.Store { return mystore.New() },
//	}
//	suite.Run(t)
type StoreTestSuite struct {
	// NewStore returns a fresh, empty store.
	NewStore func(t *testing.T) state.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Load_Empty", suite.testLoadEmpty)
	t.Run("Save_Load", suite.testSaveLoad)
	t.Run("Save_Overwrites", suite.testSaveOverwrites)
	t.Run("Save_RejectsInvalid", suite.testSaveRejectsInvalid)
	t.Run("Cancelled_Context", suite.testCancelledContext)
}

func (suite *StoreTestSuite) newStore(t *testing.T) state.Store {
	t.Helper()
	s := suite.NewStore(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func (suite *StoreTestSuite) testLoadEmpty(t *testing.T) {
	s := suite.newStore(t)

	st, found, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, state.Default(), st)
}

func (suite *StoreTestSuite) testSaveLoad(t *testing.T) {
	s := suite.newStore(t)
	ctx := context.Background()

	want := state.State{ID: 1234, Path: "/Device1/docs"}
	require.NoError(t, s.Save(ctx, want))

	got, found, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)
}

func (suite *StoreTestSuite) testSaveOverwrites(t *testing.T) {
	s := suite.newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, state.State{ID: 1, Path: "/A"}))
	require.NoError(t, s.Save(ctx, state.State{ID: 2, Path: "/B"}))

	got, _, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, state.State{ID: 2, Path: "/B"}, got)
}

func (suite *StoreTestSuite) testSaveRejectsInvalid(t *testing.T) {
	s := suite.newStore(t)
	ctx := context.Background()

	assert.Error(t, s.Save(ctx, state.State{ID: 3, Path: "relative"}))
	assert.Error(t, s.Save(ctx, state.State{ID: 0, Path: "/not-root"}))

	_, found, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func (suite *StoreTestSuite) testCancelledContext(t *testing.T) {
	s := suite.newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, s.Save(ctx, state.Default()))
	_, _, err := s.Load(ctx)
	assert.Error(t, err)
}
