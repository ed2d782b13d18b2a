package memory

import (
	"bytes"
	"context"
	"encoding/base64"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/marmos91/dittocloud/pkg/checksum"
	"github.com/marmos91/dittocloud/pkg/remote"
)

// DefaultPageSize is the listing page size used when Config.PageSize is 0.
const DefaultPageSize = 1000

// firstID is the first ID handed out. IDs below it are never used so that
// tests can address missing items with small literals.
const firstID = 1000

// Config configures the in-memory service.
type Config struct {
	// PageSize is the number of children returned per GetChildren page.
	PageSize int `mapstructure:"page_size" validate:"omitempty,gte=1"`

	// InlineLimit makes files of at most this many bytes carry their content
	// inline (Record.Data) instead of a download URL. 0 disables inlining.
	InlineLimit int64 `mapstructure:"inline_limit" validate:"omitempty,gte=0"`

	// Seed populates a demo tree on creation.
	Seed bool `mapstructure:"seed"`
}

// node is one stored item.
type node struct {
	rec      remote.Record
	children []int64
	checksum string
	objectID string
}

// upload is an issued upload authorization.
type upload struct {
	parentID  int64
	keyPrefix string
}

// object is uploaded content waiting to be (or already) bound to an item.
type object struct {
	data []byte
	mime string
}

// Service is an in-memory remote.Service.
//
// It keeps the same observable behaviour as the vendor service where the
// client depends on it:
//   - IDs are opaque integers, ID 0 is the (record-less) root
//   - listings are paginated with continuation tokens
//   - records carry partial paths relative to their device (or recycle bin)
//   - deletes move items into the device's recycle bin
//   - content goes through a signed form POST to a separate endpoint
//
// The content endpoint is served by Handler. Until SetBaseURL is called,
// upload authorizations fail and files have no download URL.
//
// Thread Safety:
// All operations are protected by a single read-write mutex.
type Service struct {
	mu sync.RWMutex

	nodes   map[int64]*node
	devices []int64
	nextID  int64

	baseURL string
	uploads map[string]upload
	objects map[string]*object
	byHash  map[string]string

	pageSize    int
	inlineLimit int64
	now         func() time.Time

	calls  map[string]int
	faults map[string]error
}

var _ remote.Service = (*Service)(nil)

// New creates an empty service.
func New(cfg Config) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	s := &Service{
		nodes:       make(map[int64]*node),
		nextID:      firstID,
		uploads:     make(map[string]upload),
		objects:     make(map[string]*object),
		byHash:      make(map[string]string),
		pageSize:    cfg.PageSize,
		inlineLimit: cfg.InlineLimit,
		now:         time.Now,
		calls:       make(map[string]int),
		faults:      make(map[string]error),
	}
	if cfg.Seed {
		s.seedDemo()
	}
	return s
}

// SetBaseURL sets the public address of the content endpoint (no trailing
// slash), e.g. the URL of an httptest.Server wrapping Handler.
func (s *Service) SetBaseURL(baseURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseURL = strings.TrimRight(baseURL, "/")
}

// SetClock replaces the time source used for item timestamps.
func (s *Service) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Calls returns how many times op (a Service method name) was invoked.
func (s *Service) Calls(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

// ResetCalls zeroes every call counter.
func (s *Service) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.calls)
}

// FailOn makes every later call to op return err. A nil err clears the fault.
func (s *Service) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// enter counts a call and returns the injected fault, if any.
// Callers hold mu.
func (s *Service) enter(op string) error {
	s.calls[op]++
	return s.faults[op]
}

func (s *Service) allocID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// ============================================================================
// Seeding
// ============================================================================

// AddDevice registers a device (and its recycle bin) and returns its ID.
// Devices cannot be created through the Service interface.
func (s *Service) AddDevice(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := s.allocID()
	s.nodes[id] = &node{rec: remote.Record{
		ID:                   id,
		DeviceID:             id,
		Name:                 name,
		Category:             remote.CategoryDevice,
		CreationTime:         now,
		LastModificationTime: now,
		LastUploadTime:       now,
	}}
	s.devices = append(s.devices, id)

	binID := s.allocID()
	s.nodes[binID] = &node{rec: remote.Record{
		ID:                   binID,
		ParentID:             id,
		DeviceID:             id,
		Name:                 remote.RecycleBinName,
		Category:             remote.CategoryRecycleBin,
		CreationTime:         now,
		LastModificationTime: now,
		LastUploadTime:       now,
	}}
	s.nodes[id].children = append(s.nodes[id].children, binID)

	return id
}

// AddFile stores content as a finished upload under parentID, bypassing
// the upload endpoint, and returns the new item's ID.
func (s *Service) AddFile(parentID int64, name string, content []byte, uploaded time.Time) (int64, error) {
	sum, err := checksum.SeededSHA1.Sum(bytes.NewReader(content))
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.storeObject(sum, content)
	id, err := s.create(name, parentID, int64(len(content)), sum)
	if err != nil {
		return 0, err
	}
	s.nodes[id].rec.LastUploadTime = uploaded
	s.nodes[id].rec.LastModificationTime = uploaded
	return id, nil
}

// AddFolder creates a folder under parentID and returns its ID.
func (s *Service) AddFolder(parentID int64, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(name, parentID, 0, checksum.Folder)
}

// Content returns the bytes backing a file item.
func (s *Service) Content(id int64) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok || n.objectID == "" {
		return nil, false
	}
	obj, ok := s.objects[n.objectID]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}

// ============================================================================
// remote.Service
// ============================================================================

func (s *Service) GetItem(ctx context.Context, id int64) (*remote.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enter("GetItem"); err != nil {
		return nil, err
	}

	n, ok := s.nodes[id]
	if !ok {
		return nil, &remote.Error{Code: remote.ErrNotFound, Message: "item " + strconv.FormatInt(id, 10) + " not found"}
	}
	return s.record(n), nil
}

func (s *Service) GetChildren(ctx context.Context, parentID int64, token string) ([]*remote.Record, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enter("GetChildren"); err != nil {
		return nil, "", err
	}

	var ids []int64
	if parentID == 0 {
		ids = s.devices
	} else {
		n, ok := s.nodes[parentID]
		if !ok {
			return nil, "", &remote.Error{Code: remote.ErrNotFound, Message: "item " + strconv.FormatInt(parentID, 10) + " not found"}
		}
		ids = n.children
	}

	offset := 0
	if token != "" {
		var err error
		offset, err = strconv.Atoi(token)
		if err != nil || offset < 0 || offset > len(ids) {
			return nil, "", remote.NewError(remote.ErrService, "Invalid input! bad continuation token %q", token)
		}
	}

	end := min(offset+s.pageSize, len(ids))
	page := make([]*remote.Record, 0, end-offset)
	for _, id := range ids[offset:end] {
		page = append(page, s.record(s.nodes[id]))
	}

	next := ""
	if end < len(ids) {
		next = strconv.Itoa(end)
	}
	return page, next, nil
}

func (s *Service) CreateItem(ctx context.Context, name string, parentID int64, size int64, sum string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enter("CreateItem"); err != nil {
		return 0, err
	}
	return s.create(name, parentID, size, sum)
}

func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enter("DeleteItem"); err != nil {
		return err
	}

	n, ok := s.nodes[id]
	if !ok {
		return &remote.Error{Code: remote.ErrNotFound, Message: "item " + strconv.FormatInt(id, 10) + " not found"}
	}
	switch n.rec.Category {
	case remote.CategoryDevice, remote.CategoryRecycleBin:
		return remote.NewError(remote.ErrService, "Invalid input! %s cannot be deleted", n.rec.Category)
	}

	binID, ok := s.recycleBin(n.rec.DeviceID)
	if !ok {
		return remote.NewError(remote.ErrService, "device %d has no recycle bin", n.rec.DeviceID)
	}
	if n.rec.ParentID == binID {
		return nil
	}

	s.unlink(n)
	s.link(n, binID)
	s.markBinned(n, true)
	return nil
}

func (s *Service) RenameItem(ctx context.Context, id int64, newName string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enter("RenameItem"); err != nil {
		return 0, err
	}

	n, err := s.mutable(id)
	if err != nil {
		return 0, err
	}
	if err := validName(newName); err != nil {
		return 0, err
	}
	if _, taken := s.childByName(n.rec.ParentID, newName); taken {
		return 0, remote.NewError(remote.ErrService, "Invalid input! %q already exists", newName)
	}

	n.rec.Name = newName
	n.rec.LastModificationTime = s.now()
	return id, nil
}

func (s *Service) MoveItem(ctx context.Context, id int64, newParentID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enter("MoveItem"); err != nil {
		return 0, err
	}

	n, err := s.mutable(id)
	if err != nil {
		return 0, err
	}
	parent, err := s.folder(newParentID)
	if err != nil {
		return 0, err
	}
	for p := parent; p != nil; p = s.nodes[p.rec.ParentID] {
		if p.rec.ID == id {
			return 0, remote.NewError(remote.ErrService, "Invalid input! cannot move an item into itself")
		}
	}
	if _, taken := s.childByName(newParentID, n.rec.Name); taken {
		return 0, remote.NewError(remote.ErrService, "Invalid input! %q already exists", n.rec.Name)
	}

	s.unlink(n)
	s.link(n, newParentID)
	s.setDevice(n, parent.rec.DeviceID)
	s.markBinned(n, parent.rec.InRecycleBin || parent.rec.Category == remote.CategoryRecycleBin)
	return id, nil
}

func (s *Service) GetUploadAuthorization(ctx context.Context, parentID int64) (*remote.UploadAuth, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enter("GetUploadAuthorization"); err != nil {
		return nil, err
	}
	if s.baseURL == "" {
		return nil, remote.NewError(remote.ErrService, "content endpoint not configured")
	}
	if _, err := s.folder(parentID); err != nil {
		return nil, err
	}

	policy := uuid.NewString()
	prefix := strings.ReplaceAll(uuid.NewString()[:13], "-", "/") + "/"
	s.uploads[policy] = upload{parentID: parentID, keyPrefix: prefix}

	return &remote.UploadAuth{
		BaseURL:   s.baseURL + "/upload",
		KeyPrefix: prefix,
		Fields: map[string]string{
			"acl":            "private",
			"policy":         policy,
			"signature":      base64.StdEncoding.EncodeToString([]byte(policy)),
			"GoogleAccessId": "memory",
			"Cache-control":  "private, max-age=86400, no-transform",
		},
	}, nil
}

// ============================================================================
// Internals (callers hold mu)
// ============================================================================

func (s *Service) create(name string, parentID int64, size int64, sum string) (int64, error) {
	if parentID == 0 {
		return 0, remote.NewError(remote.ErrService, "Invalid input! devices cannot be created")
	}
	parent, err := s.folder(parentID)
	if err != nil {
		return 0, err
	}
	if err := validName(name); err != nil {
		return 0, err
	}

	isFolder := sum == checksum.Folder && size == 0
	now := s.now()

	if existing, ok := s.childByName(parentID, name); ok {
		if isFolder {
			if !existing.rec.Category.IsFolder() {
				return 0, remote.NewError(remote.ErrService, "Invalid input! %q exists and is not a folder", name)
			}
			return existing.rec.ID, nil
		}
		if existing.rec.Category.IsFolder() {
			return 0, remote.NewError(remote.ErrService, "Invalid input! %q exists and is a folder", name)
		}
		if err := s.bindContent(existing, size, sum); err != nil {
			return 0, err
		}
		existing.rec.LastModificationTime = now
		existing.rec.LastUploadTime = now
		return existing.rec.ID, nil
	}

	n := &node{rec: remote.Record{
		ID:                   s.allocID(),
		Name:                 name,
		DeviceID:             parent.rec.DeviceID,
		Category:             remote.CategoryFolder,
		InRecycleBin:         parent.rec.InRecycleBin || parent.rec.Category == remote.CategoryRecycleBin,
		CreationTime:         now,
		LastModificationTime: now,
		LastUploadTime:       now,
	}}
	if !isFolder {
		if err := s.bindContent(n, size, sum); err != nil {
			return 0, err
		}
	}

	s.nodes[n.rec.ID] = n
	s.link(n, parentID)
	return n.rec.ID, nil
}

// bindContent attaches the uploaded object matching sum to n.
func (s *Service) bindContent(n *node, size int64, sum string) error {
	objectID, ok := s.byHash[sum]
	if !ok {
		if size != 0 {
			return remote.NewError(remote.ErrService, "Invalid input! no uploaded content with checksum %s", sum)
		}
		objectID = s.storeObject(sum, nil)
	}
	obj := s.objects[objectID]
	if int64(len(obj.data)) != size {
		return remote.NewError(remote.ErrService, "Invalid input! size %d does not match uploaded content (%d bytes)", size, len(obj.data))
	}

	n.rec.Size = size
	n.rec.Category = categorize(obj.mime)
	n.checksum = sum
	n.objectID = objectID
	return nil
}

func (s *Service) storeObject(sum string, data []byte) string {
	return putObject(s.objects, s.byHash, sum, data)
}

func putObject(objects map[string]*object, byHash map[string]string, sum string, data []byte) string {
	if id, ok := byHash[sum]; ok {
		return id
	}
	id := uuid.NewString()
	objects[id] = &object{data: data, mime: mimetype.Detect(data).String()}
	byHash[sum] = id
	return id
}

func categorize(mime string) remote.Category {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return remote.CategoryImage
	case strings.HasPrefix(mime, "video/"):
		return remote.CategoryVideo
	case strings.HasPrefix(mime, "audio/"):
		return remote.CategoryMusic
	case strings.HasPrefix(mime, "application/pdf"),
		strings.HasPrefix(mime, "application/msword"),
		strings.Contains(mime, "officedocument"),
		strings.Contains(mime, "opendocument"):
		return remote.CategoryDocument
	}
	return remote.CategoryFile
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return remote.NewError(remote.ErrService, "Invalid input! bad name %q", name)
	}
	return nil
}

func (s *Service) folder(id int64) (*node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, &remote.Error{Code: remote.ErrNotFound, Message: "item " + strconv.FormatInt(id, 10) + " not found"}
	}
	if !n.rec.Category.IsFolder() {
		return nil, &remote.Error{Code: remote.ErrNotAFolder, Message: n.rec.Name + " is not a folder"}
	}
	return n, nil
}

// mutable returns a node that may be renamed or moved.
func (s *Service) mutable(id int64) (*node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, &remote.Error{Code: remote.ErrNotFound, Message: "item " + strconv.FormatInt(id, 10) + " not found"}
	}
	switch n.rec.Category {
	case remote.CategoryDevice, remote.CategoryRecycleBin:
		return nil, remote.NewError(remote.ErrService, "Invalid input! %s cannot be modified", n.rec.Category)
	}
	return n, nil
}

func (s *Service) childByName(parentID int64, name string) (*node, bool) {
	var ids []int64
	if parentID == 0 {
		ids = s.devices
	} else if p, ok := s.nodes[parentID]; ok {
		ids = p.children
	}
	for _, id := range ids {
		if n := s.nodes[id]; n.rec.Name == name {
			return n, true
		}
	}
	return nil, false
}

func (s *Service) recycleBin(deviceID int64) (int64, bool) {
	dev, ok := s.nodes[deviceID]
	if !ok {
		return 0, false
	}
	for _, id := range dev.children {
		if s.nodes[id].rec.Category == remote.CategoryRecycleBin {
			return id, true
		}
	}
	return 0, false
}

func (s *Service) link(n *node, parentID int64) {
	n.rec.ParentID = parentID
	p := s.nodes[parentID]
	p.children = append(p.children, n.rec.ID)
}

func (s *Service) unlink(n *node) {
	p, ok := s.nodes[n.rec.ParentID]
	if !ok {
		return
	}
	for i, id := range p.children {
		if id == n.rec.ID {
			p.children = append(p.children[:i], p.children[i+1:]...)
			return
		}
	}
}

func (s *Service) markBinned(n *node, binned bool) {
	n.rec.InRecycleBin = binned
	for _, id := range n.children {
		s.markBinned(s.nodes[id], binned)
	}
}

func (s *Service) setDevice(n *node, deviceID int64) {
	n.rec.DeviceID = deviceID
	for _, id := range n.children {
		s.setDevice(s.nodes[id], deviceID)
	}
}

// partialPath is the path below the nearest device or recycle bin, which is
// what the vendor reports in FilePath.
func (s *Service) partialPath(n *node) string {
	switch n.rec.Category {
	case remote.CategoryDevice, remote.CategoryRecycleBin:
		return ""
	}
	var parts []string
	for cur := n; cur != nil; cur = s.nodes[cur.rec.ParentID] {
		c := cur.rec.Category
		if c == remote.CategoryDevice || c == remote.CategoryRecycleBin {
			break
		}
		parts = append(parts, cur.rec.Name)
	}
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteString("/")
		b.WriteString(parts[i])
	}
	return b.String()
}

func (s *Service) record(n *node) *remote.Record {
	rec := n.rec.Clone()
	rec.FilePath = s.partialPath(n)

	if n.objectID == "" {
		return rec
	}
	obj := s.objects[n.objectID]
	if s.inlineLimit > 0 && int64(len(obj.data)) <= s.inlineLimit {
		rec.Data = base64.StdEncoding.EncodeToString(obj.data)
		return rec
	}
	if s.baseURL != "" {
		rec.URL = s.baseURL + "/content/" + n.objectID
		if rec.Category == remote.CategoryImage {
			rec.OptimizedURL = rec.URL + "?optimized=1"
		}
	}
	return rec
}
