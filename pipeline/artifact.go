// ABOUTME: Session-scoped storage for rendered visualization artifacts written by stages.
// ABOUTME: Files are named <sessionID>-<uuid>.<ext> so concurrent sessions never collide.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ArtifactInfo describes a stored artifact.
type ArtifactInfo struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Size     int       `json:"size"`
	StoredAt time.Time `json:"stored_at"`
}

// ArtifactStore writes stage side-effect files (e.g. rendered 3D views)
// under a base directory. The returned path travels inside the stage's
// Success output; it is never a hidden side channel.
type ArtifactStore struct {
	mu        sync.Mutex
	baseDir   string
	sessionID string
	stored    []ArtifactInfo
}

// NewArtifactStore creates a store rooted at baseDir for one session.
func NewArtifactStore(baseDir, sessionID string) *ArtifactStore {
	return &ArtifactStore{baseDir: baseDir, sessionID: sessionID}
}

// Store writes data to a session-unique file with the given extension and
// returns its info. The base directory is created on first use.
func (s *ArtifactStore) Store(name, ext string, data []byte) (*ArtifactInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	fileName := fmt.Sprintf("%s-%s.%s", s.sessionID, uuid.NewString(), ext)
	path := filepath.Join(s.baseDir, fileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write artifact %q: %w", name, err)
	}

	info := ArtifactInfo{Name: name, Path: path, Size: len(data), StoredAt: time.Now()}
	s.stored = append(s.stored, info)
	return &info, nil
}

// List returns metadata for all artifacts stored in this session.
func (s *ArtifactStore) List() []ArtifactInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ArtifactInfo, len(s.stored))
	copy(out, s.stored)
	return out
}
