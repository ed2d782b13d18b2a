package memory

import (
	"testing"

	"github.com/marmos91/dittocloud/pkg/state"
	statetesting "github.com/marmos91/dittocloud/pkg/state/testing"
)

func TestMemoryStore(t *testing.T) {
	suite := &statetesting.StoreTestSuite{
		NewStore: func(t *testing.T) state.Store { return New() },
	}
	suite.Run(t)
}
