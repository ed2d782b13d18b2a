package cache

// Lookup kinds reported to Metrics.
const (
	KindItem    = "item"
	KindListing = "listing"
	KindPath    = "path"
)

// Metrics observes cache effectiveness.
//
// Implementations must be safe for concurrent use.
type Metrics interface {
	// ObserveLookup records a hit or miss for one lookup kind.
	ObserveLookup(kind string, hit bool)

	// ObserveListing records how many pages a listing fetch needed.
	ObserveListing(pages int, items int)

	// RecordSize records the number of cached items and listings.
	RecordSize(items, listings int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveLookup(string, bool) {}
func (noopMetrics) ObserveListing(int, int)    {}
func (noopMetrics) RecordSize(int, int)        {}
