package memory

import (
	"context"
	"sync"

	"github.com/marmos91/dittocloud/pkg/state"
)

// Store keeps the state in process memory.
type Store struct {
	mu    sync.Mutex
	st    state.State
	saved bool
	saves int
}

var _ state.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: state.Default()}
}

func (s *Store) Load(ctx context.Context) (state.State, bool, error) {
	if err := ctx.Err(); err != nil {
		return state.State{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st, s.saved, nil
}

func (s *Store) Save(ctx context.Context, st state.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := st.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = st
	s.saved = true
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *Store) Close() error {
	return nil
}
