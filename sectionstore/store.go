// Package sectionstore persists structured book sections in SQLite.
//
// The pipeline replaces a book's sections wholesale on every run. The
// store satisfies the pipeline's Sink interface, and its ReplaceSections
// upgrade runs the whole swap in one transaction so a failed run never
// leaves a book with an empty or partial section list.
package sectionstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bputano/leafbooks/contentpipe"
)

// Store wraps a database for section persistence.
type Store struct {
	DB *sql.DB
}

// New creates a Store from an already-opened database connection.
func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

// DeleteAllSections removes every section of a book.
func (s *Store) DeleteAllSections(ctx context.Context, bookID string) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM book_sections WHERE book_id = ?`, bookID)
	if err != nil {
		return fmt.Errorf("sectionstore: delete sections for %s: %w", bookID, err)
	}
	return nil
}

// CreateSection inserts one section of a book.
func (s *Store) CreateSection(ctx context.Context, bookID string, sec *contentpipe.Section) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO book_sections (book_id, ord, slug, heading, html_content,
		text_content, word_count, is_free, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bookID, sec.Order, sec.Slug, sec.Heading, sec.HTMLContent,
		sec.TextContent, sec.WordCount, sec.IsFree, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("sectionstore: insert section %s/%s: %w", bookID, sec.Slug, err)
	}
	return nil
}

// ReplaceSections swaps a book's whole section list in one transaction.
// Annotations keyed to the old (book_id, slug) identities are intentionally
// invalidated by a replace, not migrated.
func (s *Store) ReplaceSections(ctx context.Context, bookID string, sections []contentpipe.Section) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sectionstore: begin replace for %s: %w", bookID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM book_sections WHERE book_id = ?`, bookID); err != nil {
		return fmt.Errorf("sectionstore: delete sections for %s: %w", bookID, err)
	}
	now := time.Now().UnixMilli()
	for i := range sections {
		sec := &sections[i]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO book_sections (book_id, ord, slug, heading, html_content,
			text_content, word_count, is_free, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			bookID, sec.Order, sec.Slug, sec.Heading, sec.HTMLContent,
			sec.TextContent, sec.WordCount, sec.IsFree, now,
		); err != nil {
			return fmt.Errorf("sectionstore: insert section %s/%s: %w", bookID, sec.Slug, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sectionstore: commit replace for %s: %w", bookID, err)
	}
	return nil
}

// SectionsForBook returns a book's sections in reading order.
func (s *Store) SectionsForBook(ctx context.Context, bookID string) ([]*contentpipe.Section, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT ord, slug, heading, html_content, text_content, word_count, is_free
		FROM book_sections WHERE book_id = ? ORDER BY ord`, bookID)
	if err != nil {
		return nil, fmt.Errorf("sectionstore: query sections for %s: %w", bookID, err)
	}
	defer rows.Close()

	var sections []*contentpipe.Section
	for rows.Next() {
		var sec contentpipe.Section
		if err := rows.Scan(&sec.Order, &sec.Slug, &sec.Heading, &sec.HTMLContent,
			&sec.TextContent, &sec.WordCount, &sec.IsFree); err != nil {
			return nil, fmt.Errorf("sectionstore: scan section: %w", err)
		}
		sections = append(sections, &sec)
	}
	return sections, rows.Err()
}

// FreeSections returns only a book's free-sample sections, in reading
// order.
func (s *Store) FreeSections(ctx context.Context, bookID string) ([]*contentpipe.Section, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT ord, slug, heading, html_content, text_content, word_count, is_free
		FROM book_sections WHERE book_id = ? AND is_free = 1 ORDER BY ord`, bookID)
	if err != nil {
		return nil, fmt.Errorf("sectionstore: query free sections for %s: %w", bookID, err)
	}
	defer rows.Close()

	var sections []*contentpipe.Section
	for rows.Next() {
		var sec contentpipe.Section
		if err := rows.Scan(&sec.Order, &sec.Slug, &sec.Heading, &sec.HTMLContent,
			&sec.TextContent, &sec.WordCount, &sec.IsFree); err != nil {
			return nil, fmt.Errorf("sectionstore: scan section: %w", err)
		}
		sections = append(sections, &sec)
	}
	return sections, rows.Err()
}
