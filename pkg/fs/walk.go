package fs

import (
	"context"
	"iter"

	"github.com/marmos91/dittocloud/pkg/cache"
)

// Tree drawing connectors.
const (
	branch    = "├── "
	lastEntry = "└── "
	pipe      = "│   "
	blank     = "    "
)

// TreeEntry is one item produced by Walk.
type TreeEntry struct {
	Item *cache.Item

	// Depth is 0 for the starting item
	Depth int

	// Last is true when the item is the last child of its parent
	Last bool

	// Prefix is the tree-drawing text to print before the item's name
	Prefix string
}

type walkFrame struct {
	item   *cache.Item
	depth  int
	last   bool
	prefix string
	indent string
}

// Walk yields ref and everything below it depth-first, children in listing
// order. A folder whose listing fails is yielded a second time together
// with the error and its subtree is skipped. Every range over the returned
// sequence walks the tree again.
func (s *Session) Walk(ctx context.Context, ref PathRef) iter.Seq2[TreeEntry, error] {
	return func(yield func(TreeEntry, error) bool) {
		start, err := s.Resolve(ctx, ref)
		if err != nil {
			yield(TreeEntry{}, err)
			return
		}

		stack := []walkFrame{{item: start, last: true}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			entry := TreeEntry{Item: f.item, Depth: f.depth, Last: f.last, Prefix: f.prefix}
			if !yield(entry, nil) {
				return
			}
			if !f.item.IsFolder() {
				continue
			}

			children, err := s.cache.Children(ctx, f.item.ID)
			if err != nil {
				if !yield(entry, err) {
					return
				}
				continue
			}

			for i := len(children) - 1; i >= 0; i-- {
				last := i == len(children)-1
				connector, indent := branch, pipe
				if last {
					connector, indent = lastEntry, blank
				}
				stack = append(stack, walkFrame{
					item:   children[i],
					depth:  f.depth + 1,
					last:   last,
					prefix: f.indent + connector,
					indent: f.indent + indent,
				})
			}
		}
	}
}
