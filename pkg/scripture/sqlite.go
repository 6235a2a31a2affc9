package scripture

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// booksQuery reads the books table written by the bible database pipeline.
const booksQuery = `
	SELECT id, name, abbreviation, testament, chapter_count, category
	FROM   books
	ORDER  BY id`

// OpenCatalog opens the SQLite bible database at path read-only and loads its
// books table into a [Catalog].
func OpenCatalog(ctx context.Context, path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("scripture: open catalog %q: %w", path, err)
	}
	defer db.Close()

	c, err := LoadCatalog(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("scripture: load catalog %q: %w", path, err)
	}
	return c, nil
}

// LoadCatalog reads every row of the books table from db.
func LoadCatalog(ctx context.Context, db *sql.DB) (*Catalog, error) {
	rows, err := db.QueryContext(ctx, booksQuery)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var (
			b         Book
			testament string
		)
		if err := rows.Scan(&b.ID, &b.Name, &b.Abbreviation, &testament, &b.Chapters, &b.Category); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		b.Testament = Testament(testament)
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return NewCatalog(books)
}
