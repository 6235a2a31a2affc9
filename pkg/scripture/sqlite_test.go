package scripture_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/MrWong99/versecap/pkg/scripture"
)

const booksDDL = `
CREATE TABLE books (
    id            INTEGER PRIMARY KEY,
    name          TEXT    NOT NULL,
    abbreviation  TEXT    NOT NULL,
    testament     TEXT    NOT NULL,
    chapter_count INTEGER NOT NULL,
    category      TEXT    NOT NULL
)`

func newBibleDB(t *testing.T, rows ...scripture.Book) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bible.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(booksDDL); err != nil {
		t.Fatalf("create books: %v", err)
	}
	for _, b := range rows {
		if _, err := db.Exec(
			"INSERT INTO books (id, name, abbreviation, testament, chapter_count, category) VALUES (?, ?, ?, ?, ?, ?)",
			b.ID, b.Name, b.Abbreviation, string(b.Testament), b.Chapters, b.Category,
		); err != nil {
			t.Fatalf("insert %q: %v", b.Name, err)
		}
	}
	return path
}

func TestOpenCatalog(t *testing.T) {
	t.Parallel()

	path := newBibleDB(t,
		scripture.Book{ID: 45, Name: "Romans", Abbreviation: "Rom", Testament: scripture.NewTestament, Chapters: 16, Category: "PaulineEpistles"},
		scripture.Book{ID: 40, Name: "Matthew", Abbreviation: "Matt", Testament: scripture.NewTestament, Chapters: 28, Category: "Gospels"},
	)

	cat, err := scripture.OpenCatalog(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenCatalog: %v", err)
	}
	names := cat.Names()
	if len(names) != 2 || names[0] != "Matthew" || names[1] != "Romans" {
		t.Fatalf("Names()=%v, want [Matthew Romans]", names)
	}
	if b, ok := cat.Lookup("matt"); !ok || b.Chapters != 28 {
		t.Errorf("Lookup(matt)=%+v,%v", b, ok)
	}
	if _, ok := cat.Lookup("Genesis"); ok {
		t.Error("Genesis should not be in a two-book catalog")
	}
}

func TestOpenCatalog_EmptyTable(t *testing.T) {
	t.Parallel()

	path := newBibleDB(t)
	if _, err := scripture.OpenCatalog(context.Background(), path); err == nil {
		t.Error("OpenCatalog on empty books table returned nil error")
	}
}
