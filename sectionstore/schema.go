package sectionstore

// Schema is the complete section store schema. Sections are fully
// replaced on every pipeline run, so there are no mutable columns beyond
// the insert.
const Schema = `
CREATE TABLE IF NOT EXISTS book_sections (
    book_id      TEXT NOT NULL,
    ord          INTEGER NOT NULL,
    slug         TEXT NOT NULL,
    heading      TEXT NOT NULL,
    html_content TEXT NOT NULL,
    text_content TEXT NOT NULL,
    word_count   INTEGER NOT NULL DEFAULT 0,
    is_free      INTEGER NOT NULL DEFAULT 0,
    created_at   INTEGER NOT NULL,
    PRIMARY KEY (book_id, ord),
    UNIQUE (book_id, slug)
);
CREATE INDEX IF NOT EXISTS idx_book_sections_free ON book_sections(book_id, is_free);
`
