package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/dittocloud/internal/logger"
	"github.com/marmos91/dittocloud/pkg/state"
)

// stateKey is the single key the store writes.
var stateKey = []byte("cwd")

// Config configures the BadgerDB-backed store.
type Config struct {
	// DBPath is the directory where BadgerDB keeps its files.
	// Default: <data dir>/state
	DBPath string `mapstructure:"db_path"`

	// InMemory runs BadgerDB without touching disk (tests).
	InMemory bool `mapstructure:"in_memory"`
}

// Store keeps the state under one key of an embedded BadgerDB.
//
// BadgerDB holds a directory lock, so only one process can have the store
// open at a time; a second CLI invocation fails fast instead of racing.
type Store struct {
	db *badger.DB
}

var _ state.Store = (*Store)(nil)

// New opens (or creates) the database.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.DBPath)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Load(ctx context.Context) (state.State, bool, error) {
	if err := ctx.Err(); err != nil {
		return state.State{}, false, err
	}

	var (
		st    state.State
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stateKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &st); err != nil {
				return fmt.Errorf("failed to decode state: %w", err)
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return state.State{}, false, err
	}
	if !found {
		return state.Default(), false, nil
	}
	if err := st.Validate(); err != nil {
		logger.Warn("Ignoring stored state: %v", err)
		return state.Default(), false, nil
	}
	return st, true, nil
}

func (s *Store) Save(ctx context.Context, st state.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := st.Validate(); err != nil {
		return err
	}

	val, err := json.Marshal(&st)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(stateKey, val)
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}
