package rulekey

import (
	"context"
	"strconv"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/fsys"
	"github.com/matzehuels/rulegraph/pkg/observability"
)

// DefaultFileHashCacheSize bounds the number of remembered file hashes.
const DefaultFileHashCacheSize = 4096

// FileHasher hashes file contents through the filesystem abstraction.
// Hashes are cached by absolute path for the lifetime of the hasher.
type FileHasher struct {
	fs    *fsys.Filesystem
	cache *lru.Cache[string, string]
}

// NewFileHasher creates a hasher remembering up to size file hashes.
func NewFileHasher(fs *fsys.Filesystem, size int) *FileHasher {
	if size <= 0 {
		size = DefaultFileHashCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		errors.Internal("file hash cache: %v", err)
	}
	return &FileHasher{fs: fs, cache: cache}
}

// Name returns the root-relative name under which p enters a rule key.
func (h *FileHasher) Name(p SourcePath) string { return h.fs.Rel(string(p)) }

// Hash returns the hex xxhash of the file at p.
func (h *FileHasher) Hash(ctx context.Context, p SourcePath) (string, error) {
	abs := h.fs.Abs(string(p))
	if sum, ok := h.cache.Get(abs); ok {
		observability.Cache().OnCacheHit(ctx, "filehash")
		return sum, nil
	}
	observability.Cache().OnCacheMiss(ctx, "filehash")

	data, err := h.fs.ReadFile(abs)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidArg, err, "hash source %s", p)
	}
	sum := strconv.FormatUint(xxhash.Sum64(data), 16)
	h.cache.Add(abs, sum)
	observability.Cache().OnCacheSet(ctx, "filehash", len(sum))
	return sum, nil
}
