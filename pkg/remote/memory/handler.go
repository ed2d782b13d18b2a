package memory

import (
	"io"
	"net/http"
	"strings"

	"github.com/marmos91/dittocloud/internal/logger"
)

// maxUploadMemory bounds the multipart form kept in memory while parsing.
const maxUploadMemory = 32 << 20

// Handler serves the content endpoint:
//
//	POST /upload          signed multipart form (policy fields, key, file)
//	GET  /content/{id}    download of an uploaded object
//
// Successful uploads answer 204 No Content, like the vendor's storage
// bucket.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /content/{id}", s.handleContent)
	return mux
}

func (s *Service) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}

	policy := r.FormValue("policy")
	key := r.FormValue("key")

	s.mu.RLock()
	auth, ok := s.uploads[policy]
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "SignatureDoesNotMatch", http.StatusForbidden)
		return
	}
	if !strings.HasPrefix(key, auth.keyPrefix) {
		http.Error(w, "key outside of authorized prefix", http.StatusForbidden)
		return
	}

	sum, ok := checksumFromKey(strings.TrimPrefix(key, auth.keyPrefix))
	if !ok {
		http.Error(w, "malformed key", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file part", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "read failed", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	delete(s.byHash, sum)
	s.storeObject(sum, data)
	delete(s.uploads, policy)
	s.mu.Unlock()

	logger.Debug("memory: stored %d bytes under %s", len(data), key)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleContent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.RLock()
	obj, ok := s.objects[id]
	s.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", obj.mime)
	_, _ = w.Write(obj.data)
}

// checksumFromKey extracts the checksum from "<ext>/<checksum>.<ext>".
// Checksums are standard base64 and may themselves contain "/".
func checksumFromKey(rest string) (string, bool) {
	ext, name, ok := strings.Cut(rest, "/")
	if !ok || ext == "" {
		return "", false
	}
	sum, ok := strings.CutSuffix(name, "."+ext)
	if !ok || sum == "" {
		return "", false
	}
	return sum, true
}
