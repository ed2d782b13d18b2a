// Package transfer mirrors local trees to remote folders and back.
//
// Put and Get never stop at the first bad file: every item's outcome is
// collected in a Report. Only failing to resolve what the call is about
// (the remote target, the local source) is returned as an error.
package transfer

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/marmos91/dittocloud/internal/logger"
	"github.com/marmos91/dittocloud/pkg/cache"
	"github.com/marmos91/dittocloud/pkg/checksum"
	"github.com/marmos91/dittocloud/pkg/fs"
	"github.com/marmos91/dittocloud/pkg/remote"
	"github.com/marmos91/dittocloud/pkg/schedule"
	"github.com/spf13/afero"
)

// Config holds the engine's collaborators. Zero fields get defaults.
type Config struct {
	// Hasher computes upload checksums (default checksum.SeededSHA1)
	Hasher checksum.Hasher

	// Transport moves content (default HTTPTransport with DefaultUserAgent)
	Transport Transport

	// Gate enforces schedules (default: DefaultSchedule on the system clock)
	Gate *schedule.Gate

	// Local is the local filesystem (default afero.OsFs)
	Local afero.Fs

	Metrics Metrics
}

// Engine runs uploads and downloads for one session.
type Engine struct {
	session   *fs.Session
	svc       remote.Service
	hasher    checksum.Hasher
	transport Transport
	gate      *schedule.Gate
	local     afero.Fs
	metrics   Metrics
	detector  *Detector
}

// NewEngine creates an engine over session.
func NewEngine(session *fs.Session, cfg Config) *Engine {
	if cfg.Hasher == nil {
		cfg.Hasher = checksum.SeededSHA1
	}
	if cfg.Transport == nil {
		cfg.Transport = NewHTTPTransport(HTTPConfig{})
	}
	if cfg.Gate == nil {
		cfg.Gate = schedule.NewGate(schedule.DefaultSchedule(), nil)
	}
	if cfg.Local == nil {
		cfg.Local = afero.NewOsFs()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	return &Engine{
		session:   session,
		svc:       session.Cache().Service(),
		hasher:    cfg.Hasher,
		transport: cfg.Transport,
		gate:      cfg.Gate,
		local:     cfg.Local,
		metrics:   cfg.Metrics,
		detector:  NewDetector(session, cfg.Local),
	}
}

// Detector returns the engine's change detector.
func (e *Engine) Detector() *Detector {
	return e.detector
}

// ============================================================================
// Put
// ============================================================================

// Put uploads localPath into the remote folder.
//
// A file lands directly in the folder. A directory is recreated under the
// folder as a same-named subfolder, reusing folders that already exist,
// and its files are uploaded into their mirrored parents.
//
// The returned error means nothing ran. Once the target is resolved every
// per-file failure, including that of a single-file put, is carried by the
// Report (see Report.Err).
func (e *Engine) Put(ctx context.Context, localPath string, remoteFolder fs.PathRef, opts Options) (*Report, error) {
	info, err := e.local.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	folder, err := e.session.Resolve(ctx, remoteFolder)
	if err != nil {
		return nil, err
	}
	if !folder.IsFolder() {
		return nil, &remote.Error{Code: remote.ErrNotAFolder, Message: "upload target is not a folder", Path: folder.AbsolutePath}
	}

	report := &Report{ID: uuid.NewString(), DryRun: opts.DryRun}
	logger.Debug("put %s: %s -> %s", report.ID, localPath, folder.AbsolutePath)

	if info.IsDir() {
		if err := e.putDirectory(ctx, localPath, folder, opts, report); err != nil {
			return nil, err
		}
		return report, nil
	}
	if !info.Mode().IsRegular() {
		return nil, remote.NewError(remote.ErrInvalidArgument, "%s is neither a file nor a directory", localPath)
	}

	o, err := e.putFile(ctx, localPath, info, folder.ID, folder.AbsolutePath, opts)
	if err != nil {
		report.fail(localPath, fs.Join(folder.AbsolutePath, info.Name()), err)
		return report, nil
	}
	report.record(o)
	report.Root = Result{ID: o.ID, RemotePath: o.Remote, URL: o.URL, LocalPath: localPath}
	return report, nil
}

type mirrored struct {
	id   int64
	path string
}

func (e *Engine) putDirectory(ctx context.Context, localDir string, folder *cache.Item, opts Options, report *Report) error {
	localDir = filepath.Clean(localDir)
	rootName, err := localName(localDir)
	if err != nil {
		return err
	}
	rootPath := fs.Join(folder.AbsolutePath, rootName)

	rootID, err := e.mkdir(ctx, rootName, folder.ID, rootPath, opts.DryRun)
	if err != nil {
		return err
	}
	report.Root = Result{ID: rootID, RemotePath: rootPath, LocalPath: localDir}

	parents := map[string]mirrored{localDir: {id: rootID, path: rootPath}}

	return afero.Walk(e.local, localDir, func(p string, info os.FileInfo, err error) error {
		if p == localDir {
			return err
		}
		parent, ok := parents[filepath.Dir(p)]
		if !ok {
			// parent folder failed, already reported
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		remotePath := fs.Join(parent.path, filepath.Base(p))

		if err != nil {
			report.fail(p, remotePath, err)
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			id, err := e.mkdir(ctx, info.Name(), parent.id, remotePath, opts.DryRun)
			if err != nil {
				logger.Warn("Skipping %s: %v", p, err)
				report.fail(p, remotePath, err)
				return filepath.SkipDir
			}
			parents[p] = mirrored{id: id, path: remotePath}
			return nil
		}
		if !info.Mode().IsRegular() {
			logger.Debug("Skipping %s: not a regular file", p)
			return nil
		}

		o, err := e.putFile(ctx, p, info, parent.id, parent.path, opts)
		if err != nil {
			logger.Warn("Failed to upload %s: %v", p, err)
			report.fail(p, remotePath, err)
			return nil
		}
		report.record(o)
		return nil
	})
}

// localName is the basename a local directory is mirrored under. "." and
// ".." name the directory they stand for.
func localName(dir string) (string, error) {
	name := filepath.Base(dir)
	if name != "." && name != ".." {
		return name, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	return filepath.Base(abs), nil
}

// mkdir is Session.Mkdir that also plans below folders a dry run only
// pretended to create.
func (e *Engine) mkdir(ctx context.Context, name string, parentID int64, remotePath string, dryRun bool) (int64, error) {
	if dryRun && parentID == fs.NoID {
		logger.Info("Would create %s", remotePath)
		return fs.NoID, nil
	}
	return e.session.Mkdir(ctx, name, parentID, dryRun)
}

func (e *Engine) putFile(ctx context.Context, localFile string, info os.FileInfo, folderID int64, folderPath string, opts Options) (Outcome, error) {
	start := time.Now()
	name := info.Name()

	o := Outcome{
		Intent: Intent{
			Direction: schedule.Upload,
			Local:     localFile,
			Remote:    fs.Join(folderPath, name),
			Decision:  Transfer,
			Reason:    Forced,
		},
		ID:    fs.NoID,
		Bytes: info.Size(),
	}

	if opts.IfChanged {
		o.Reason = Changed
		if folderID != fs.NoID {
			changed, err := e.detector.HasChanged(ctx, localFile, fs.ByID(folderID))
			if err != nil {
				return o, err
			}
			if !changed {
				o.Decision, o.Reason = Skip, Unchanged
			}
		}
	}

	var err error
	switch {
	case o.Decision == Skip:
		e.trace(opts, 2, "Not uploading %s to %s: unchanged since last upload", localFile, folderPath)
		o.Bytes = 0
		err = e.existing(ctx, folderID, &o)
	case opts.DryRun:
		e.trace(opts, 1, "Would upload %s to %s", localFile, folderPath)
	default:
		e.wait(opts, schedule.Upload)
		e.trace(opts, 1, "Uploading %s to %s", localFile, folderPath)
		err = e.upload(ctx, localFile, info.Size(), folderID, &o)
	}

	e.observe(schedule.Upload, opts, o, start, err)
	return o, err
}

// existing fills o from the remote child it would have replaced.
func (e *Engine) existing(ctx context.Context, folderID int64, o *Outcome) error {
	children, err := e.session.Cache().Children(ctx, folderID)
	if err != nil {
		return err
	}
	name := filepath.Base(o.Local)
	for _, child := range children {
		if child.Name == name {
			o.ID = child.ID
			o.Remote = child.AbsolutePath
			o.URL = child.URL
			return nil
		}
	}
	return remote.NotFound(name, filepath.Dir(o.Remote))
}

// upload runs the four service steps: authorize, post content, create the
// item, fetch it back for its download URL.
func (e *Engine) upload(ctx context.Context, localFile string, size int64, folderID int64, o *Outcome) error {
	name := filepath.Base(localFile)

	sum, err := checksum.File(e.local, e.hasher, localFile)
	if err != nil {
		return err
	}

	auth, err := e.svc.GetUploadAuthorization(ctx, folderID)
	if err != nil {
		return remote.AsServiceError("upload authorization", err)
	}

	f, err := e.local.Open(localFile)
	if err != nil {
		return err
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return fmt.Errorf("failed to detect content type of %s: %w", localFile, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	err = e.transport.Upload(ctx, auth, UploadRequest{
		Key:         UploadKey(auth.KeyPrefix, name, sum),
		FileName:    name,
		ContentType: mtype.String(),
		Body:        f,
	})
	if err != nil {
		return err
	}

	id, err := e.svc.CreateItem(ctx, name, folderID, size, sum)
	if err != nil {
		return remote.AsServiceError("create item", err)
	}
	e.session.Cache().InvalidateListing(folderID)
	e.session.Cache().Invalidate(id)

	item, err := e.session.Cache().Get(ctx, id)
	if err != nil {
		return err
	}
	o.ID = item.ID
	o.Remote = item.AbsolutePath
	o.URL = item.URL
	return nil
}

// ============================================================================
// Get
// ============================================================================

// Get downloads the remote item into localDir. A file lands at
// localDir/<name>. A folder is mirrored into localDir/<name> (localDir
// itself for the root), files first, then subfolders.
//
// As with Put, a failed file download is recorded in the Report rather than
// returned.
func (e *Engine) Get(ctx context.Context, remoteRef fs.PathRef, localDir string, opts Options) (*Report, error) {
	item, err := e.session.Resolve(ctx, remoteRef)
	if err != nil {
		return nil, err
	}

	report := &Report{ID: uuid.NewString(), DryRun: opts.DryRun}
	logger.Debug("get %s: %s -> %s", report.ID, item.AbsolutePath, localDir)

	if item.IsFolder() {
		dest := localDir
		if !item.IsRoot() {
			dest = filepath.Join(localDir, item.Name)
		}
		report.Root = Result{ID: item.ID, RemotePath: item.AbsolutePath, LocalPath: dest}
		e.getDirectory(ctx, item, dest, opts, report)
		return report, nil
	}

	dest := filepath.Join(localDir, item.Name)
	report.Root = Result{ID: item.ID, RemotePath: item.AbsolutePath, URL: item.URL, LocalPath: dest}
	o, err := e.getFile(ctx, item, localDir, opts)
	if err != nil {
		report.fail(dest, item.AbsolutePath, err)
		return report, nil
	}
	report.record(o)
	return report, nil
}

func (e *Engine) getDirectory(ctx context.Context, folder *cache.Item, dest string, opts Options, report *Report) {
	if !opts.DryRun {
		if err := e.local.MkdirAll(dest, 0o755); err != nil {
			report.fail(dest, folder.AbsolutePath, err)
			return
		}
	}

	children, err := e.session.Cache().Children(ctx, folder.ID)
	if err != nil {
		report.fail(dest, folder.AbsolutePath, err)
		return
	}

	e.trace(opts, 2, "Fetching files from %s", folder.AbsolutePath)
	var folders []*cache.Item
	for _, child := range children {
		if child.IsFolder() {
			folders = append(folders, child)
			continue
		}
		o, err := e.getFile(ctx, child, dest, opts)
		if err != nil {
			logger.Warn("Failed to download %s: %v", child.AbsolutePath, err)
			report.fail(filepath.Join(dest, child.Name), child.AbsolutePath, err)
			continue
		}
		report.record(o)
	}

	for _, child := range folders {
		e.getDirectory(ctx, child, filepath.Join(dest, child.Name), opts, report)
	}
}

func (e *Engine) getFile(ctx context.Context, item *cache.Item, localDir string, opts Options) (Outcome, error) {
	start := time.Now()
	dest := filepath.Join(localDir, item.Name)

	o := Outcome{
		Intent: Intent{
			Direction: schedule.Download,
			Local:     dest,
			Remote:    item.AbsolutePath,
			Decision:  Transfer,
			Reason:    MissingLocally,
		},
		ID:  item.ID,
		URL: downloadURL(item),
	}

	exists, err := afero.Exists(e.local, dest)
	if err != nil {
		return o, err
	}
	if exists {
		o.Reason = Forced
		if opts.IfMissing {
			o.Decision, o.Reason = Skip, Exists
		}
	}

	switch {
	case o.Decision == Skip:
		e.trace(opts, 2, "Not downloading %s: %s exists", item.AbsolutePath, dest)
	case opts.DryRun:
		e.trace(opts, 1, "Would download %s to %s", item.AbsolutePath, dest)
		o.Bytes = item.Size
	default:
		e.wait(opts, schedule.Download)
		e.trace(opts, 1, "Downloading %s to %s", item.AbsolutePath, dest)
		o.Bytes, err = e.download(ctx, item, localDir, dest)
	}

	e.observe(schedule.Download, opts, o, start, err)
	return o, err
}

func downloadURL(item *cache.Item) string {
	if item.OptimizedURL != "" {
		return item.OptimizedURL
	}
	return item.URL
}

// download writes the item to dest, from its URL or from the inline Data
// the service returns for small files. A partial file is removed.
func (e *Engine) download(ctx context.Context, item *cache.Item, localDir, dest string) (int64, error) {
	url := downloadURL(item)
	if url == "" && item.Data == "" && item.Size > 0 {
		return 0, &remote.Error{Code: remote.ErrNoContent, Message: "no URL to download from", Path: item.AbsolutePath}
	}

	if err := e.local.MkdirAll(localDir, 0o755); err != nil {
		return 0, err
	}

	if url == "" {
		data, err := base64.StdEncoding.DecodeString(item.Data)
		if err != nil {
			return 0, &remote.Error{Code: remote.ErrSchema, Message: "malformed inline content", Path: item.AbsolutePath, Err: err}
		}
		if err := afero.WriteFile(e.local, dest, data, 0o644); err != nil {
			return 0, err
		}
		return int64(len(data)), nil
	}

	f, err := e.local.Create(dest)
	if err != nil {
		return 0, err
	}
	n, err := e.transport.Download(ctx, url, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if rerr := e.local.Remove(dest); rerr != nil {
			logger.Warn("Failed to remove partial download %s: %v", dest, rerr)
		}
		return n, err
	}
	return n, nil
}

// ============================================================================
// Helpers
// ============================================================================

func (e *Engine) wait(opts Options, direction string) {
	if !opts.Schedule {
		return
	}
	start := time.Now()
	if err := e.gate.Wait(direction); err != nil {
		logger.Warn("Ignoring schedule: %v", err)
		return
	}
	e.metrics.ObserveScheduleWait(direction, time.Since(start))
}

// observe reports a handled file. Dry runs move no bytes.
func (e *Engine) observe(direction string, opts Options, o Outcome, start time.Time, err error) {
	n := o.Bytes
	if opts.DryRun {
		n = 0
	}
	e.metrics.ObserveFile(direction, o.Decision, n, time.Since(start), err)
}

// trace logs at info when opts.Verbose reaches level, at debug otherwise.
func (e *Engine) trace(opts Options, level int, format string, args ...any) {
	if opts.Verbose >= level {
		logger.Info(format, args...)
		return
	}
	logger.Debug(format, args...)
}
