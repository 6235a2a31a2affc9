package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/MrWong99/versecap/internal/caption"
	"github.com/MrWong99/versecap/internal/transcript"
)

var _ transcript.ArchiveSink = (*FileStore)(nil)

// FileStore archives captions as append-only JSON lines in a local file. It
// is the fallback that keeps a service's captions when PostgreSQL is down, and
// the whole archive for single-machine deployments.
//
// Thread-safe for concurrent use.
type FileStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileStore creates a FileStore that appends to the file at path. The
// file is created on the first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Path returns the file the store appends to.
func (s *FileStore) Path() string { return s.path }

// WriteCaption appends c as one [Record] line.
func (s *FileStore) WriteCaption(ctx context.Context, streamID string, c transcript.Caption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rewrites := c.Rewrites
	if rewrites == nil {
		rewrites = []caption.Rewrite{}
	}
	data, err := json.Marshal(Record{
		StreamID:  streamID,
		SegmentID: c.ID,
		Raw:       c.Raw,
		Text:      c.Text,
		Rewrites:  rewrites,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("archive: marshal: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("archive: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("archive: write: %w", err)
	}
	return nil
}

// Ping reports whether the directory holding the archive file exists.
func (s *FileStore) Ping(context.Context) error {
	dir := filepath.Dir(s.path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("archive: %s is not a directory", dir)
	}
	return nil
}

// Records reads back every record of streamID in write order. An empty
// streamID returns all records. A missing file holds no records.
func (s *FileStore) Records(streamID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("archive: open file: %w", err)
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for line := 1; sc.Scan(); line++ {
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return nil, fmt.Errorf("archive: %s line %d: %w", s.path, line, err)
		}
		if streamID == "" || r.StreamID == streamID {
			out = append(out, r)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("archive: read: %w", err)
	}
	return out, nil
}
