package archive

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-platform-client/internal/core/domain"
)

func TestLocalStore_PutOpenDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	content := []byte("archive content")
	ref, err := store.Put(ctx, "abc.tar.gz", bytes.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	assert.Equal(t, "abc.tar.gz", ref.Name)
	assert.Equal(t, int64(len(content)), ref.Size)
	assert.True(t, strings.HasPrefix(ref.URI, "file://"))

	onDisk, err := os.ReadFile(filepath.Join(dir, "abc.tar.gz"))
	require.NoError(t, err)
	assert.Equal(t, content, onDisk)

	rc, err := store.Open(ctx, *ref)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, content, got)

	// by URI only
	rc, err = store.Open(ctx, domain.ArchiveRef{URI: ref.URI})
	require.NoError(t, err)
	rc.Close()

	require.NoError(t, store.Delete(ctx, *ref))
	_, err = store.Open(ctx, *ref)
	assert.ErrorIs(t, err, domain.ErrArchiveNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// deleting again is fine
	assert.NoError(t, store.Delete(ctx, *ref))
}

func TestLocalStore_RejectsPathNames(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../escape.tar.gz", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// fakeS3 is a path-style object endpoint good enough for single-part uploads.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		w.Write(body)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestS3Store(t *testing.T) (*S3Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: make(map[string][]byte)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client := s3.New(s3.Options{
		Region:                     "us-east-1",
		BaseEndpoint:               aws.String(srv.URL),
		UsePathStyle:               true,
		Credentials:                credentials.NewStaticCredentialsProvider("key", "secret", ""),
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})
	return NewS3StoreFromClient(client, "archives", "/exports/"), fake
}

func TestS3Store_PutOpenDelete(t *testing.T) {
	store, fake := newTestS3Store(t)
	ctx := context.Background()

	content := []byte("tarball bytes")
	ref, err := store.Put(ctx, "abc.tar.gz", bytes.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	assert.Equal(t, "s3://archives/exports/abc.tar.gz", ref.URI)
	assert.Equal(t, content, fake.objects["archives/exports/abc.tar.gz"])

	rc, err := store.Open(ctx, *ref)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, content, got)

	require.NoError(t, store.Delete(ctx, *ref))
	_, err = store.Open(ctx, *ref)
	assert.ErrorIs(t, err, domain.ErrArchiveNotFound)
}
