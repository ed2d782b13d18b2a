package fs

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/dittocloud/pkg/cache"
	"github.com/marmos91/dittocloud/pkg/remote"
	"github.com/marmos91/dittocloud/pkg/remote/memory"
	"github.com/marmos91/dittocloud/pkg/state"
	statemem "github.com/marmos91/dittocloud/pkg/state/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture builds:
//
//	/Device1/A/foo.txt
//	/Device1/docs/report.pdf
//	/Device1/photos/
//	/Device1/Recycle Bin/
//	/Device2/
type fixture struct {
	svc     *memory.Service
	store   *statemem.Store
	session *Session

	device int64
	a      int64
	foo    int64
	docs   int64
	report int64
	photos int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	svc := memory.New(memory.Config{PageSize: 2})
	f := &fixture{svc: svc, store: statemem.New()}

	var err error
	f.device = svc.AddDevice("Device1")
	svc.AddDevice("Device2")
	f.a, err = svc.AddFolder(f.device, "A")
	require.NoError(t, err)
	f.foo, err = svc.AddFile(f.a, "foo.txt", []byte("foo"), time.Unix(1_600_000_000, 0))
	require.NoError(t, err)
	f.docs, err = svc.AddFolder(f.device, "docs")
	require.NoError(t, err)
	f.report, err = svc.AddFile(f.docs, "report.pdf", []byte("%PDF-1.4 report"), time.Unix(1_600_000_000, 0))
	require.NoError(t, err)
	f.photos, err = svc.AddFolder(f.device, "photos")
	require.NoError(t, err)

	f.session = f.newSession(t, cache.DefaultConfig())
	svc.ResetCalls()
	return f
}

func (f *fixture) newSession(t *testing.T, cfg cache.Config) *Session {
	t.Helper()
	s, err := NewSession(context.Background(), cache.New(f.svc, cfg, nil), f.store)
	require.NoError(t, err)
	return s
}

func (f *fixture) resolve(t *testing.T, p string) *cache.Item {
	t.Helper()
	item, err := f.session.Resolve(context.Background(), ByPath(p))
	require.NoError(t, err, p)
	return item
}

// ============================================================================
// Resolution
// ============================================================================

func TestResolveRoundTrip(t *testing.T) {
	for _, pathIndex := range []bool{true, false} {
		t.Run(map[bool]string{true: "PathIndex", false: "NoPathIndex"}[pathIndex], func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			f.session = f.newSession(t, cache.Config{PathIndex: pathIndex})

			var visited int
			for entry, err := range f.session.Walk(ctx, ByPath("/")) {
				require.NoError(t, err)
				visited++

				got, err := f.session.Resolve(ctx, ByPath(entry.Item.AbsolutePath))
				require.NoError(t, err, entry.Item.AbsolutePath)
				assert.Equal(t, entry.Item.ID, got.ID, entry.Item.AbsolutePath)

				// A fresh session without warm listings must agree.
				cold := f.newSession(t, cache.Config{PathIndex: pathIndex})
				got, err = cold.Resolve(ctx, ByPath(entry.Item.AbsolutePath))
				require.NoError(t, err)
				assert.Equal(t, entry.Item.ID, got.ID)
			}
			assert.Equal(t, 10, visited)
		})
	}
}

func TestResolveByIDAndCurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	item, err := f.session.Resolve(ctx, ByID(f.report))
	require.NoError(t, err)
	assert.Equal(t, "/Device1/docs/report.pdf", item.AbsolutePath)

	cwd, err := f.session.Resolve(ctx, Current())
	require.NoError(t, err)
	assert.True(t, cwd.IsRoot())
}

func TestResolveNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.session.Resolve(context.Background(), ByPath("/Device1/docs/missing/deeper"))
	require.Error(t, err)
	assert.True(t, remote.IsNotFound(err))

	var re *remote.Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "missing", re.Segment)
	assert.Contains(t, re.Message, "/Device1/docs")
}

func TestResolveThroughFile(t *testing.T) {
	f := newFixture(t)

	_, err := f.session.Resolve(context.Background(), ByPath("/Device1/docs/report.pdf/inner"))
	assert.True(t, remote.IsNotAFolder(err))
}

func TestResolveIsCaseSensitive(t *testing.T) {
	f := newFixture(t)

	_, err := f.session.Resolve(context.Background(), ByPath("/device1"))
	assert.True(t, remote.IsNotFound(err))
}

func TestResolveRelative(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.session.Cd(ctx, ByPath("/Device1/docs"))
	require.NoError(t, err)

	assert.Equal(t, f.report, f.resolve(t, "report.pdf").ID)
	assert.Equal(t, f.report, f.resolve(t, "./report.pdf").ID)
	assert.Equal(t, f.foo, f.resolve(t, "../A/foo.txt").ID)
	assert.Equal(t, f.device, f.resolve(t, "..").ID)
	assert.True(t, f.resolve(t, "../..").IsRoot())

	_, err = f.session.Resolve(ctx, ByPath("../../.."))
	assert.True(t, remote.IsCode(err, remote.ErrInvalidArgument))

	_, err = f.session.Resolve(ctx, ByPath("nope"))
	var re *remote.Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, remote.ErrNotFound, re.Code)
	assert.Equal(t, "nope", re.Segment)
}

func TestInvalidateRefetches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.resolve(t, "/Device1/docs/report.pdf")
	before := f.svc.Calls("GetChildren")

	f.resolve(t, "/Device1/docs/report.pdf")
	assert.Equal(t, before, f.svc.Calls("GetChildren"), "warm resolve uses the cache")

	f.session.Cache().Invalidate(f.report)
	f.session.Cache().InvalidateListing(f.docs)

	_, err := f.session.Resolve(ctx, ByID(f.report))
	require.NoError(t, err)
	assert.Equal(t, 1, f.svc.Calls("GetItem"))
}

// ============================================================================
// Helpers
// ============================================================================

func TestExistsAndIsFolder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ok, err := f.session.Exists(ctx, ByPath("/Device1/docs"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.session.Exists(ctx, ByPath("/Device1/nothing"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.session.Exists(ctx, ByPath("/Device1/docs/report.pdf/x"))
	require.NoError(t, err)
	assert.False(t, ok)

	folder, err := f.session.IsFolder(ctx, ByPath("/Device1/docs"))
	require.NoError(t, err)
	assert.True(t, folder)

	folder, err = f.session.IsFolder(ctx, ByPath("/Device1/docs/report.pdf"))
	require.NoError(t, err)
	assert.False(t, folder)
}

func TestChildrenAndParent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	children, err := f.session.Children(ctx, ByPath("/Device1"))
	require.NoError(t, err)
	var names []string
	for _, c := range children {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{remote.RecycleBinName, "A", "docs", "photos"}, names)

	_, err = f.session.Children(ctx, ByPath("/Device1/docs/report.pdf"))
	assert.True(t, remote.IsNotAFolder(err))

	parent, err := f.session.Parent(ctx, ByPath("/Device1/docs/report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, f.docs, parent.ID)

	parent, err = f.session.Parent(ctx, ByPath("/Device1"))
	require.NoError(t, err)
	assert.True(t, parent.IsRoot())

	parent, err = f.session.Parent(ctx, ByPath("/"))
	require.NoError(t, err)
	assert.True(t, parent.IsRoot())
}

func TestDevices(t *testing.T) {
	f := newFixture(t)

	devices, err := f.session.Devices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "/Device1", devices[0].AbsolutePath)
	assert.Equal(t, "/Device2", devices[1].AbsolutePath)
}

// ============================================================================
// Current directory
// ============================================================================

func TestCd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	st, err := f.session.Cd(ctx, ByPath("/Device1/docs"))
	require.NoError(t, err)
	assert.Equal(t, state.State{ID: f.docs, Path: "/Device1/docs"}, st)
	assert.Equal(t, st, f.session.Pwd())

	saved, ok, err := f.store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, st, saved)
}

func TestCdIntoFileFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.session.Cd(ctx, ByPath("/Device1/docs/report.pdf"))
	assert.True(t, remote.IsNotAFolder(err))
	assert.Equal(t, state.Default(), f.session.Pwd())
	assert.Zero(t, f.store.Saves())
}

func TestSessionRestoresCwd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.session.Cd(ctx, ByPath("/Device1/docs"))
	require.NoError(t, err)

	restored := f.newSession(t, cache.DefaultConfig())
	assert.Equal(t, state.State{ID: f.docs, Path: "/Device1/docs"}, restored.Pwd())
}

func TestSessionFallsBackToRootWhenCwdVanished(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.store.Save(ctx, state.State{ID: 999_999, Path: "/Gone"}))

	restored := f.newSession(t, cache.DefaultConfig())
	assert.Equal(t, state.Default(), restored.Pwd())
}

// ============================================================================
// References
// ============================================================================

func TestParseRef(t *testing.T) {
	tests := []struct {
		in   string
		kind RefKind
		id   int64
		path string
		err  bool
	}{
		{in: "", kind: RefCurrent},
		{in: "#42", kind: RefID, id: 42},
		{in: "#0", kind: RefID, id: 0},
		{in: "2024", kind: RefPath, path: "2024"},
		{in: "/Device1/docs", kind: RefPath, path: "/Device1/docs"},
		{in: "#abc", err: true},
		{in: "#-3", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ref, err := ParseRef(tt.in)
			if tt.err {
				assert.True(t, remote.IsCode(err, remote.ErrInvalidArgument))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, ref.Kind())
			assert.Equal(t, tt.id, ref.ID())
			assert.Equal(t, tt.path, ref.Path())
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		cwd  string
		in   string
		want string
		err  bool
	}{
		{"/", "", "/", false},
		{"/a/b", "", "/a/b", false},
		{"/a/b", "c", "/a/b/c", false},
		{"/a/b", "./c/", "/a/b/c", false},
		{"/a/b", "../c", "/a/c", false},
		{"/a/b", "/x//y/./z/..", "/x/y", false},
		{"/", "..", "", true},
		{"/a", "../..", "", true},
		{"/a", "/..", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.cwd+"|"+tt.in, func(t *testing.T) {
			got, err := Normalize(tt.cwd, tt.in)
			if tt.err {
				assert.True(t, remote.IsCode(err, remote.ErrInvalidArgument))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathHelpers(t *testing.T) {
	assert.Equal(t, "/", Dir("/a"))
	assert.Equal(t, "/a", Dir("/a/b"))
	assert.Equal(t, "b", Base("/a/b"))
	assert.Equal(t, "/a", Join("/", "a"))
	assert.Equal(t, "/a/b", Join("/a", "b"))
	assert.Nil(t, Split("/"))
	assert.Equal(t, []string{"a", "b"}, Split("/a/b"))
}
