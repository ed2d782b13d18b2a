package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/dittocloud/pkg/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasChangedBoundary(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		mtime   time.Time
		changed bool
	}{
		{"same size, same instant", 100, t0, false},
		{"same size, earlier", 100, t0.Add(-time.Hour), false},
		{"same size, one unit later", 100, t0.Add(time.Nanosecond), true},
		{"larger, earlier", 101, t0.Add(-time.Hour), true},
		{"smaller, same instant", 99, t0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			f.writeLocal(t, "/l/report.pdf", pdf(tt.size), tt.mtime)

			byFolder, err := f.engine.Detector().HasChanged(ctx, "/l/report.pdf", fs.ByPath("/Device1/docs"))
			require.NoError(t, err)
			assert.Equal(t, tt.changed, byFolder, "folder reference")

			byFile, err := f.engine.Detector().HasChanged(ctx, "/l/report.pdf", fs.ByPath("/Device1/docs/report.pdf"))
			require.NoError(t, err)
			assert.Equal(t, tt.changed, byFile, "file reference")
		})
	}
}

func TestHasChangedWithTimezones(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Same instant expressed in another zone is not a change.
	zone := time.FixedZone("UTC+5", 5*60*60)
	f.writeLocal(t, "/l/report.pdf", pdf(100), t0.In(zone))

	changed, err := f.engine.Detector().HasChanged(ctx, "/l/report.pdf", fs.ByID(f.docs))
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestHasChangedMissingRemote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.writeLocal(t, "/l/new.txt", nil, t0)

	c, err := f.engine.Detector().Explain(ctx, "/l/new.txt", fs.ByPath("/Device1/docs"))
	require.NoError(t, err)
	assert.False(t, c.RemoteFound)
	assert.Equal(t, "/Device1/docs/new.txt", c.Remote)
	assert.Equal(t, time.Unix(0, 0).UTC(), c.RemoteUploaded)
	assert.True(t, c.Changed(), "an empty file newer than the epoch still counts as changed")

	changed, err := f.engine.Detector().HasChanged(ctx, "/l/new.txt", fs.ByPath("/Device1/nowhere/new.txt"))
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestExplainFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.writeLocal(t, "/l/report.pdf", pdf(100), t0)

	c, err := f.engine.Detector().Explain(ctx, "/l/report.pdf", fs.ByPath("/Device1/docs"))
	require.NoError(t, err)
	assert.True(t, c.RemoteFound)
	assert.Equal(t, "/Device1/docs/report.pdf", c.Remote)
	assert.Equal(t, int64(100), c.RemoteSize)
	assert.True(t, c.RemoteUploaded.Equal(t0))
	assert.Contains(t, c.String(), "remote size 100")
}

func TestExplainMissingLocal(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Detector().Explain(context.Background(), "/l/absent", fs.ByPath("/Device1/docs"))
	assert.Error(t, err)
}
