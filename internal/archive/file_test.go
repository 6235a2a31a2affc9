package archive_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/MrWong99/versecap/internal/archive"
	"github.com/MrWong99/versecap/internal/caption"
	"github.com/MrWong99/versecap/internal/transcript"
)

func TestFileStore_WriteAndRecords(t *testing.T) {
	t.Parallel()

	fs := archive.NewFileStore(filepath.Join(t.TempDir(), "captions.jsonl"))
	ctx := context.Background()

	caps := []struct {
		stream string
		c      transcript.Caption
	}{
		{"a", transcript.Caption{ID: "1", Raw: "Verse one.", Text: "Matthew 12:1.", IsFinal: true,
			Rewrites: []caption.Rewrite{{Stage: caption.StageCarry, Original: "Verse one", Canonical: "Matthew 12:1"}}}},
		{"b", transcript.Caption{ID: "1", Raw: "Amen.", Text: "Amen.", IsFinal: true}},
		{"a", transcript.Caption{ID: "2", Raw: "Let us pray.", Text: "Let us pray.", IsFinal: true}},
	}
	for _, c := range caps {
		if err := fs.WriteCaption(ctx, c.stream, c.c); err != nil {
			t.Fatalf("WriteCaption: %v", err)
		}
	}

	got, err := fs.Records("a")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].SegmentID != "1" || got[0].Text != "Matthew 12:1." || got[0].Raw != "Verse one." {
		t.Errorf("record[0] = %+v", got[0])
	}
	if len(got[0].Rewrites) != 1 || got[0].Rewrites[0].Canonical != "Matthew 12:1" {
		t.Errorf("record[0].Rewrites = %+v", got[0].Rewrites)
	}
	if got[1].Rewrites == nil || len(got[1].Rewrites) != 0 {
		t.Errorf("record[1].Rewrites = %#v, want empty", got[1].Rewrites)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	all, err := fs.Records("")
	if err != nil {
		t.Fatalf("Records(all): %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d records, want 3", len(all))
	}
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	fs := archive.NewFileStore(filepath.Join(t.TempDir(), "none.jsonl"))
	got, err := fs.Records("")
	if err != nil || len(got) != 0 {
		t.Errorf("Records() = %v, %v; want empty, nil", got, err)
	}
}

func TestFileStore_ConcurrentWrites(t *testing.T) {
	t.Parallel()

	fs := archive.NewFileStore(filepath.Join(t.TempDir(), "captions.jsonl"))
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := transcript.Caption{ID: string(rune('a' + i)), Text: "Amen.", IsFinal: true}
			if err := fs.WriteCaption(context.Background(), "s", c); err != nil {
				t.Errorf("WriteCaption: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := fs.Records("s")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != 20 {
		t.Errorf("got %d records, want 20", len(got))
	}
}

func TestFileStore_Ping(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := archive.NewFileStore(filepath.Join(dir, "c.jsonl")).Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if err := archive.NewFileStore(filepath.Join(dir, "missing", "c.jsonl")).Ping(context.Background()); err == nil {
		t.Error("Ping with missing directory succeeded")
	}
}

func TestFileStore_WriteFails(t *testing.T) {
	t.Parallel()

	fs := archive.NewFileStore(filepath.Join(t.TempDir(), "missing", "c.jsonl"))
	err := fs.WriteCaption(context.Background(), "s", transcript.Caption{ID: "1"})
	if err == nil {
		t.Fatal("WriteCaption into a missing directory succeeded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := fs.WriteCaption(ctx, "s", transcript.Caption{ID: "1"}); !errors.Is(err, context.Canceled) {
		t.Errorf("WriteCaption(cancelled) = %v, want context.Canceled", err)
	}
}
