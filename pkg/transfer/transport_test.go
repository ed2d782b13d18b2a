package transfer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/marmos91/dittocloud/pkg/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadKey(t *testing.T) {
	assert.Equal(t, "ab/cd/txt/c2Vh/c3Vt.txt", UploadKey("ab/cd/", "notes.txt", "c2Vh/c3Vt"))
	assert.Equal(t, "ab/cd/gz/sum.gz", UploadKey("ab/cd/", "backup.tar.gz", "sum"))
	assert.Equal(t, "ab/cd/@/sum.@", UploadKey("ab/cd/", "Makefile", "sum"))
}

func TestHTTPUploadForm(t *testing.T) {
	var gotParts []string
	var gotUA, gotFile string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		mr, err := r.MultipartReader()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			gotParts = append(gotParts, part.FormName())
			if part.FormName() == "file" {
				b, _ := io.ReadAll(part)
				gotFile = string(b)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	tr := NewHTTPTransport(HTTPConfig{UserAgent: "tester/2"})
	auth := &remote.UploadAuth{
		BaseURL:   server.URL,
		KeyPrefix: "p/",
		Fields:    map[string]string{"policy": "pol", "acl": "private", "signature": "sig"},
	}
	err := tr.Upload(context.Background(), auth, UploadRequest{
		Key:         "p/txt/sum.txt",
		FileName:    "a.txt",
		ContentType: "text/plain",
		Body:        strings.NewReader("hello"),
	})
	require.NoError(t, err)

	assert.Equal(t, "tester/2", gotUA)
	assert.Equal(t, []string{"acl", "policy", "signature", "key", "Content-Type", "file"}, gotParts)
	assert.Equal(t, "hello", gotFile)
}

func TestHTTPUploadRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "SignatureDoesNotMatch", http.StatusForbidden)
	}))
	defer server.Close()

	err := NewHTTPTransport(HTTPConfig{}).Upload(context.Background(),
		&remote.UploadAuth{BaseURL: server.URL},
		UploadRequest{Key: "k", FileName: "f", ContentType: "text/plain", Body: strings.NewReader("x")})
	assert.True(t, remote.IsCode(err, remote.ErrUploadFailed))
	assert.ErrorContains(t, err, "SignatureDoesNotMatch")
}

func TestHTTPDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.UserAgent() != DefaultUserAgent {
			http.Error(w, "blocked agent", http.StatusForbidden)
			return
		}
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "payload")
	}))
	defer server.Close()

	tr := NewHTTPTransport(HTTPConfig{})

	var buf bytes.Buffer
	n, err := tr.Download(context.Background(), server.URL+"/file", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "payload", buf.String())

	_, err = tr.Download(context.Background(), server.URL+"/missing", &buf)
	assert.True(t, remote.IsCode(err, remote.ErrService))
}

func TestReportAggregation(t *testing.T) {
	r := &Report{}
	r.record(Outcome{Intent: Intent{Decision: Transfer}, Bytes: 2048})
	r.record(Outcome{Intent: Intent{Decision: Transfer}, Bytes: 1000})
	r.record(Outcome{Intent: Intent{Decision: Skip}})
	assert.NoError(t, r.Err())

	r.fail("/l/x", "/Device1/x", errors.New("first"))
	r.fail("/l/y", "/Device1/y", &remote.Error{Code: remote.ErrUploadFailed, Message: "second"})

	err := r.Err()
	require.Error(t, err)
	assert.ErrorContains(t, err, "/l/x -> /Device1/x: first")
	assert.ErrorContains(t, err, "second")
	assert.True(t, remote.IsCode(err, remote.ErrUploadFailed))

	assert.Equal(t, int64(3048), r.Bytes())
	assert.Equal(t, "2 transferred (3.0 kB), 1 skipped, 2 failed", r.Summary())
}

func TestReasonAndDecisionStrings(t *testing.T) {
	assert.Equal(t, "transfer", Transfer.String())
	assert.Equal(t, "skip", Skip.String())
	assert.Equal(t, "missing locally", MissingLocally.String())
	assert.Equal(t, "Reason(42)", Reason(42).String())
}
