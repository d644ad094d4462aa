// Package artifacts tracks which set of previously ingested artifacts a
// session has already been initialized with.
package artifacts

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultSessionKey is used when a request carries no session key.
const DefaultSessionKey = "default"

// Artifact is metadata for one uploaded artifact. Content stays with the
// ingestion collaborator.
type Artifact struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MediaType string `json:"media_type,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Pages     int    `json:"pages,omitempty"`
}

// Signature returns an order-independent content signature of an artifact
// set. An empty set has an empty signature.
func Signature(set []Artifact) string {
	if len(set) == 0 {
		return ""
	}

	lines := make([]string, 0, len(set))
	for _, a := range set {
		lines = append(lines, strings.Join([]string{
			a.ID, a.Name, a.MediaType, strconv.FormatInt(a.Size, 10), strconv.Itoa(a.Pages),
		}, "\x1f"))
	}
	sort.Strings(lines)

	h := xxhash.New()
	for _, line := range lines {
		_, _ = h.WriteString(line)
		_, _ = h.WriteString("\x1e")
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// SignatureStore remembers the last artifact signature initialized per session.
type SignatureStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, signature string) error
}

// MemoryStore is an in-process SignatureStore.
type MemoryStore struct {
	mu   sync.RWMutex
	sigs map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sigs: make(map[string]string)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.sigs[key]
	return sig, ok, nil
}

func (s *MemoryStore) Put(ctx context.Context, key, signature string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sigs[key] = signature
	return nil
}
