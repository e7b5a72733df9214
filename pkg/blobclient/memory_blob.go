package blobclient

import (
	"context"
	"fmt"
	"sync"
)

type memoryBlob struct {
	data     []byte
	metadata map[string]string
}

// MemoryBlobClient is an in-memory implementation of BlobClient for tests
// and local development.
type MemoryBlobClient struct {
	blobs map[string]map[string]*memoryBlob // container -> blobName -> blob
	mu    sync.RWMutex

	// Err, when set, is returned by every operation.
	Err error
}

// NewMemoryBlobClient creates an empty in-memory store.
func NewMemoryBlobClient() *MemoryBlobClient {
	return &MemoryBlobClient{
		blobs: make(map[string]map[string]*memoryBlob),
	}
}

// SetMetadata replaces the metadata of an existing blob.
func (m *MemoryBlobClient) SetMetadata(container, blobName string, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.blobs[container][blobName]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, container, blobName)
	}
	b.metadata = copyMap(metadata)
	return nil
}

// ReadBlob returns a copy of the stored bytes.
func (m *MemoryBlobClient) ReadBlob(ctx context.Context, container, blobName string) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.blobs[container][blobName]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, container, blobName)
	}
	return append([]byte(nil), b.data...), nil
}

// ReadBlobMetadata returns a copy of the blob metadata.
func (m *MemoryBlobClient) ReadBlobMetadata(ctx context.Context, container, blobName string) (map[string]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.blobs[container][blobName]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, container, blobName)
	}
	return copyMap(b.metadata), nil
}

// CreateBlob stores data unless the blob already exists.
func (m *MemoryBlobClient) CreateBlob(ctx context.Context, container, blobName string, data []byte) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[container][blobName]; ok {
		return fmt.Errorf("%w: %s/%s", ErrConflict, container, blobName)
	}
	m.put(container, blobName, data)
	return nil
}

// UpdateBlob stores data, replacing any existing blob and its metadata,
// the same way a block blob upload does.
func (m *MemoryBlobClient) UpdateBlob(ctx context.Context, container, blobName string, data []byte) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.put(container, blobName, data)
	return nil
}

// DeleteBlob removes a blob.
func (m *MemoryBlobClient) DeleteBlob(ctx context.Context, container, blobName string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[container][blobName]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, container, blobName)
	}
	delete(m.blobs[container], blobName)
	return nil
}

func (m *MemoryBlobClient) put(container, blobName string, data []byte) {
	if m.blobs[container] == nil {
		m.blobs[container] = make(map[string]*memoryBlob)
	}
	m.blobs[container][blobName] = &memoryBlob{data: append([]byte(nil), data...)}
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
