package testing

import (
	"context"
	"testing"

	"github.com/marmos91/dittocloud/pkg/checksum"
	"github.com/marmos91/dittocloud/pkg/remote"
	"github.com/stretchr/testify/require"
)

// Seeder creates devices, which the Service contract itself cannot do.
type Seeder interface {
	AddDevice(name string) int64
}

// ServiceTestSuite is a conformance test suite for remote.Service
// implementations. It tests the interface contract the client relies on
// (paging, partial paths, soft delete, idempotent folder creation), not
// implementation details.
//
// Usage:
//
//	func TestMyService(t *testing.T) {
//	    suite := &testing.ServiceTestSuite{
//	        NewService: func(t *testing.T) (remote.Service, testing.Seeder) {
//	            svc := myservice.New()
//	            return svc, svc
//	        },
//	    }
//	    suite.Run(t)
//	}
type ServiceTestSuite struct {
	// NewService creates a fresh, empty service for each test. Services that
	// hand out download URLs or upload authorizations must already have
	// their content endpoint running.
	NewService func(t *testing.T) (remote.Service, Seeder)
}

// Run executes all tests in the suite.
func (suite *ServiceTestSuite) Run(t *testing.T) {
	t.Run("Items", suite.RunItemTests)
	t.Run("Listing", suite.RunListingTests)
	t.Run("Mutations", suite.RunMutationTests)
}

func testContext() context.Context {
	return context.Background()
}

// listAll drains every page of parentID's listing.
func listAll(t *testing.T, svc remote.Service, parentID int64) []*remote.Record {
	t.Helper()

	var (
		all   []*remote.Record
		token string
	)
	for {
		page, next, err := svc.GetChildren(testContext(), parentID, token)
		require.NoError(t, err)
		all = append(all, page...)
		if next == "" {
			return all
		}
		token = next
	}
}

func names(recs []*remote.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out
}

func mustCreateFolder(t *testing.T, svc remote.Service, parentID int64, name string) int64 {
	t.Helper()
	id, err := svc.CreateItem(testContext(), name, parentID, 0, checksum.Folder)
	require.NoError(t, err)
	return id
}
