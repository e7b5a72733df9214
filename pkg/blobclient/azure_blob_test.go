package blobclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/ctk-wopi/pkg/logging"
)

const fakeSAS = "sv=2022-11-02&sp=rwd&sig=fake"

// fakeBlobService speaks just enough of the Blob REST API for the client.
type fakeBlobService struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	metadata map[string]map[string]string
}

func newFakeBlobService() *fakeBlobService {
	return &fakeBlobService{
		blobs:    make(map[string][]byte),
		metadata: make(map[string]map[string]string),
	}
}

func (f *fakeBlobService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Query().Get("sig") != "fake" {
		storageError(w, http.StatusForbidden, "AuthenticationFailed")
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/")
	data, exists := f.blobs[key]

	switch r.Method {
	case http.MethodGet:
		if !exists {
			storageError(w, http.StatusNotFound, "BlobNotFound")
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("x-ms-blob-type", "BlockBlob")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	case http.MethodHead:
		if !exists {
			// HEAD responses carry the code in the header only.
			w.Header().Set("x-ms-error-code", "BlobNotFound")
			w.WriteHeader(http.StatusNotFound)
			return
		}
		for k, v := range f.metadata[key] {
			w.Header().Set("x-ms-meta-"+k, v)
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("x-ms-blob-type", "BlockBlob")
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		if exists && r.Header.Get("If-None-Match") == "*" {
			storageError(w, http.StatusConflict, "BlobAlreadyExists")
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.blobs[key] = body
		delete(f.metadata, key)
		w.WriteHeader(http.StatusCreated)
	case http.MethodDelete:
		if !exists {
			storageError(w, http.StatusNotFound, "BlobNotFound")
			return
		}
		delete(f.blobs, key)
		w.WriteHeader(http.StatusAccepted)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeBlobService) get(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[key]
	return data, ok
}

func (f *fakeBlobService) set(key string, data []byte, metadata map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[key] = data
	if metadata != nil {
		f.metadata[key] = metadata
	}
}

func storageError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("x-ms-error-code", code)
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `<?xml version="1.0" encoding="utf-8"?><Error><Code>`+code+`</Code><Message>fake</Message></Error>`)
}

func newTestAzureClient(t *testing.T, sas string) (*AzureBlobClient, *fakeBlobService) {
	t.Helper()

	fake := newFakeBlobService()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := NewAzureBlobClient(server.URL, sas, logging.Nop())
	require.NoError(t, err)
	return client, fake
}

func TestAzureBlobClient_UpdateAndRead(t *testing.T) {
	client, fake := newTestAzureClient(t, fakeSAS)
	ctx := context.Background()

	require.NoError(t, client.UpdateBlob(ctx, "templates", "new.docx", []byte("hello")))
	stored, _ := fake.get("templates/new.docx")
	assert.Equal(t, []byte("hello"), stored)

	data, err := client.ReadBlob(ctx, "templates", "new.docx")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestAzureBlobClient_ReadMetadata(t *testing.T) {
	client, fake := newTestAzureClient(t, fakeSAS)
	ctx := context.Background()

	fake.set("templates/report.docx", make([]byte, 4096), map[string]string{"size": "4096"})

	metadata, err := client.ReadBlobMetadata(ctx, "templates", "report.docx")
	require.NoError(t, err)

	var size string
	for k, v := range metadata {
		if strings.EqualFold(k, "size") {
			size = v
		}
	}
	assert.Equal(t, "4096", size)
}

func TestAzureBlobClient_NotFound(t *testing.T) {
	client, _ := newTestAzureClient(t, fakeSAS)
	ctx := context.Background()

	_, err := client.ReadBlob(ctx, "templates", "missing.docx")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.ReadBlobMetadata(ctx, "templates", "missing.docx")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, client.DeleteBlob(ctx, "templates", "missing.docx"), ErrNotFound)
}

func TestAzureBlobClient_CreateConflict(t *testing.T) {
	client, fake := newTestAzureClient(t, fakeSAS)
	ctx := context.Background()

	require.NoError(t, client.CreateBlob(ctx, "templates", "report.docx", []byte("original")))

	err := client.CreateBlob(ctx, "templates", "report.docx", []byte("replacement"))
	assert.ErrorIs(t, err, ErrConflict)
	stored, _ := fake.get("templates/report.docx")
	assert.Equal(t, []byte("original"), stored)
}

func TestAzureBlobClient_Delete(t *testing.T) {
	client, fake := newTestAzureClient(t, fakeSAS)
	ctx := context.Background()

	fake.set("templates/old.docx", []byte("x"), nil)
	require.NoError(t, client.DeleteBlob(ctx, "templates", "old.docx"))
	_, exists := fake.get("templates/old.docx")
	assert.False(t, exists)
}

func TestAzureBlobClient_Unauthorized(t *testing.T) {
	client, _ := newTestAzureClient(t, "sv=2022-11-02&sp=rwd&sig=wrong")

	_, err := client.ReadBlob(context.Background(), "templates", "report.docx")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAzureBlobClient_Transient(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewAzureBlobClient(url, fakeSAS, logging.Nop())
	require.NoError(t, err)

	_, err = client.ReadBlob(context.Background(), "templates", "report.docx")
	assert.ErrorIs(t, err, ErrTransient)
}

func TestAzureBlobClient_NoRetries(t *testing.T) {
	var mu sync.Mutex
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		storageError(w, http.StatusServiceUnavailable, "ServerBusy")
	}))
	t.Cleanup(server.Close)

	client, err := NewAzureBlobClient(server.URL, fakeSAS, logging.Nop())
	require.NoError(t, err)

	_, err = client.ReadBlob(context.Background(), "templates", "report.docx")
	assert.ErrorIs(t, err, ErrTransient)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, requests)
}

func TestNewAzureBlobClient_RequiresSAS(t *testing.T) {
	_, err := NewAzureBlobClient("https://ctkstorage.blob.core.windows.net/", "", logging.Nop())
	assert.Error(t, err)
}

func TestStatusSentinel(t *testing.T) {
	assert.ErrorIs(t, statusSentinel(http.StatusNotFound), ErrNotFound)
	assert.ErrorIs(t, statusSentinel(http.StatusForbidden), ErrUnauthorized)
	assert.ErrorIs(t, statusSentinel(http.StatusPreconditionFailed), ErrConflict)
	assert.ErrorIs(t, statusSentinel(http.StatusServiceUnavailable), ErrTransient)
	assert.ErrorIs(t, statusSentinel(http.StatusTooManyRequests), ErrTransient)
}
