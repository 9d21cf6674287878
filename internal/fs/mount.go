package fs

import (
	"sync"

	"libfs/internal/logging"
)

var (
	mountLogger = logging.GetLogger().WithPrefix("mount")
)

// Mount binds a normalized virtual prefix to a provider
type Mount struct {
	Prefix   Path
	Provider Provider
}

// MountTable is an append-only set of mounts. Mounts are kept in
// registration order and resolved by longest segment-wise prefix, with
// ties going to the mount registered first.
type MountTable struct {
	mounts []Mount
	byPath map[string]int // prefix -> index into mounts
	mu     sync.RWMutex
}

// NewMountTable creates an empty mount table
func NewMountTable() *MountTable {
	return &MountTable{
		byPath: make(map[string]int),
	}
}

// Add registers provider under prefix. The prefix is normalized and must
// be absolute; registering the same normalized prefix twice fails with
// ErrDuplicateMount.
func (t *MountTable) Add(prefix string, provider Provider) error {
	p, err := Normalize(prefix)
	if err != nil {
		return err
	}
	if !p.IsAbs() {
		mountLogger.Warn("Rejected relative mount prefix: %q", prefix)
		return NewFSError(OpMount, prefix, ErrInvalidPath)
	}
	if provider == nil {
		return NewFSError(OpMount, prefix, ErrInvalidProvider)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.byPath[p.String()]; exists {
		mountLogger.Warn("Duplicate mount prefix: %q", p.String())
		return NewFSError(OpMount, p.String(), ErrDuplicateMount)
	}

	t.byPath[p.String()] = len(t.mounts)
	t.mounts = append(t.mounts, Mount{Prefix: p, Provider: provider})
	mountLogger.Info("Mounted %v at %s", provider, p.String())
	return nil
}

// Resolve finds the mount with the longest prefix of p and returns its
// provider together with the path relative to the mount, rooted at "/".
// ok is false when no mount matches.
func (t *MountTable) Resolve(p Path) (provider Provider, remainder Path, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	matchIndex := -1
	matchDepth := 0
	for i, m := range t.mounts {
		if !p.hasSegmentPrefix(m.Prefix) {
			continue
		}
		// strictly greater keeps the earliest registration on ties
		depth := len(m.Prefix.Segments())
		if matchIndex == -1 || depth > matchDepth {
			matchIndex = i
			matchDepth = depth
		}
	}

	if matchIndex == -1 {
		mountLogger.Trace("No mount for %q", p.String())
		return nil, Path{}, false
	}

	m := t.mounts[matchIndex]
	remainder = p.trimPrefix(m.Prefix)
	mountLogger.Trace("Resolved %q -> mount %q, remainder %q",
		p.String(), m.Prefix.String(), remainder.String())
	return m.Provider, remainder, true
}

// Mounts returns a snapshot of the table in registration order
func (t *MountTable) Mounts() []Mount {
	t.mu.RLock()
	defer t.mu.RUnlock()

	mounts := make([]Mount, len(t.mounts))
	copy(mounts, t.mounts)
	return mounts
}

// Len returns the number of registered mounts
func (t *MountTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.mounts)
}
