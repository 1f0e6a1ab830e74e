package media

import (
	"sync"

	"github.com/google/uuid"
)

// HandleStore holds transient in-memory image blobs registered by the
// caller. A handle is fetched once per resolution; the content is assumed
// still live for the duration of a batch.
type HandleStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewHandleStore creates an empty handle store.
func NewHandleStore() *HandleStore {
	return &HandleStore{blobs: make(map[string][]byte)}
}

// Register stores a blob and returns its handle ID.
func (h *HandleStore) Register(data []byte) string {
	id := uuid.New().String()
	h.mu.Lock()
	h.blobs[id] = data
	h.mu.Unlock()
	return id
}

// Get returns the blob for a handle ID.
func (h *HandleStore) Get(id string) ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	data, ok := h.blobs[id]
	return data, ok
}

// Release drops a blob once the caller no longer needs it.
func (h *HandleStore) Release(id string) {
	h.mu.Lock()
	delete(h.blobs, id)
	h.mu.Unlock()
}
