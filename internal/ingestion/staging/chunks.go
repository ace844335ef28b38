package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/minutebridge-backend/internal/domain"
	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
)

const MaxChunks = 10000

// ChunkStore reassembles uploads sent in pieces. Each upload id owns its own
// directory and writes to it are serialized, so concurrent requests for
// different uploads never share a path.
type ChunkStore struct {
	dir      string
	maxBytes int64
	log      *logger.Logger

	mu    sync.Mutex
	locks map[string]*uploadLock
}

type uploadLock struct {
	mu   sync.Mutex
	refs int
}

func NewChunkStore(root string, maxBytes int64, log *logger.Logger) (*ChunkStore, error) {
	if log == nil {
		log = logger.NewNop()
	}
	dir := filepath.Join(root, "chunks")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("chunk staging dir: %w", err)
	}
	return &ChunkStore{
		dir:      dir,
		maxBytes: maxBytes,
		log:      log.With("service", "ChunkStore"),
		locks:    map[string]*uploadLock{},
	}, nil
}

func (c *ChunkStore) lock(id string) func() {
	c.mu.Lock()
	l := c.locks[id]
	if l == nil {
		l = &uploadLock{}
		c.locks[id] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, id)
		}
		c.mu.Unlock()
	}
}

// uploadDir canonicalizes the id so the same upload always maps to one lock and one directory.
func (c *ChunkStore) uploadDir(id string) (string, string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", "", domain.Errorf(domain.KindUploadNotFound, "unknown upload id")
	}
	canonical := parsed.String()
	return filepath.Join(c.dir, canonical), canonical, nil
}

func partName(index int) string { return fmt.Sprintf("part-%06d", index) }

// Begin allocates a new upload id.
func (c *ChunkStore) Begin() (string, error) {
	id := uuid.New().String()
	if err := os.Mkdir(filepath.Join(c.dir, id), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	return id, nil
}

// Put stores chunk index of total. Re-sending an index replaces it. Returns
// the number of distinct chunks held for the upload.
func (c *ChunkStore) Put(ctx context.Context, uploadID string, index, total int, r io.Reader) (int, error) {
	if total <= 0 || total > MaxChunks || index < 0 || index >= total {
		return 0, domain.Errorf(domain.KindIncompleteUpload, "chunk index %d out of range for %d chunks", index, total)
	}
	dir, id, err := c.uploadDir(uploadID)
	if err != nil {
		return 0, err
	}
	unlock := c.lock(id)
	defer unlock()

	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, domain.Errorf(domain.KindUploadNotFound, "unknown upload id")
		}
		return 0, fmt.Errorf("stat upload dir: %w", err)
	}

	held, parts, err := c.usage(dir, partName(index))
	if err != nil {
		return 0, err
	}
	remaining := c.maxBytes - held

	tmp := filepath.Join(dir, partName(index)+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("create chunk: %w", err)
	}
	n, copyErr := io.Copy(f, io.LimitReader(readerWithContext(ctx, r), remaining+1))
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil || n > remaining {
		_ = os.Remove(tmp)
		switch {
		case copyErr != nil:
			return 0, fmt.Errorf("write chunk: %w", copyErr)
		case closeErr != nil:
			return 0, fmt.Errorf("close chunk: %w", closeErr)
		default:
			return 0, domain.Errorf(domain.KindPayloadTooLarge, "upload exceeds the %d byte limit", c.maxBytes)
		}
	}
	final := filepath.Join(dir, partName(index))
	_, statErr := os.Stat(final)
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("commit chunk: %w", err)
	}
	if errors.Is(statErr, fs.ErrNotExist) {
		parts++
	}
	return parts, nil
}

// usage sums part sizes in dir, skipping the named part (it is about to be replaced).
func (c *ChunkStore) usage(dir, skip string) (int64, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("read upload dir: %w", err)
	}
	var total int64
	parts := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) == ".tmp" {
			continue
		}
		if e.Name() == skip {
			parts++
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
		parts++
	}
	return total, parts, nil
}

// Assemble concatenates chunks 0..total-1 into a file owned by scope and
// removes the upload directory. Missing chunks leave the upload intact so the
// client can resend them.
func (c *ChunkStore) Assemble(ctx context.Context, uploadID string, total int, scope *Scope) (string, int64, error) {
	if total <= 0 || total > MaxChunks {
		return "", 0, domain.Errorf(domain.KindIncompleteUpload, "invalid chunk count %d", total)
	}
	dir, id, err := c.uploadDir(uploadID)
	if err != nil {
		return "", 0, err
	}
	unlock := c.lock(id)
	defer unlock()

	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", 0, domain.Errorf(domain.KindUploadNotFound, "unknown upload id")
		}
		return "", 0, fmt.Errorf("stat upload dir: %w", err)
	}

	missing := 0
	for i := 0; i < total; i++ {
		if _, err := os.Stat(filepath.Join(dir, partName(i))); err != nil {
			missing++
		}
	}
	if missing > 0 {
		return "", 0, domain.Errorf(domain.KindIncompleteUpload, "%d of %d chunks missing", missing, total)
	}

	out, err := scope.CreateTemp("merged-*")
	if err != nil {
		return "", 0, err
	}
	var size int64
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			_ = out.Close()
			return "", 0, err
		}
		n, err := appendFile(out, filepath.Join(dir, partName(i)))
		if err != nil {
			_ = out.Close()
			return "", 0, err
		}
		size += n
	}
	if err := out.Close(); err != nil {
		return "", 0, fmt.Errorf("close merged file: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		c.log.Warn("chunk dir cleanup failed", "upload_id", id, "error", err)
	}
	return out.Name(), size, nil
}

func appendFile(dst io.Writer, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open chunk: %w", err)
	}
	defer f.Close()
	n, err := io.Copy(dst, f)
	if err != nil {
		return n, fmt.Errorf("append chunk: %w", err)
	}
	return n, nil
}

// Sweep removes upload directories untouched for longer than ttl.
func (c *ChunkStore) Sweep(now time.Time, ttl time.Duration) int {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		c.log.Warn("chunk sweep failed", "error", err)
		return 0
	}
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < ttl {
			continue
		}
		unlock := c.lock(e.Name())
		if err := os.RemoveAll(filepath.Join(c.dir, e.Name())); err != nil {
			c.log.Warn("abandoned upload cleanup failed", "upload_id", e.Name(), "error", err)
		} else {
			removed++
		}
		unlock()
	}
	if removed > 0 {
		c.log.Info("abandoned uploads removed", "count", removed)
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (c *ChunkStore) Run(ctx context.Context, interval, ttl time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			c.Sweep(now, ttl)
		}
	}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	if ctx == nil {
		return r
	}
	return ctxReader{ctx: ctx, r: r}
}
