package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements DocumentsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `id, storage_key, original_name, mime_type, size_bytes, checksum, extracted_text, summary, document_type, metadata, analyzed, created_at, updated_at`

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    storage_key,
    original_name,
    mime_type,
    size_bytes,
    checksum,
    extracted_text,
    summary,
    document_type,
    metadata,
    analyzed,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	metadata, err := encodeMetadata(doc.Metadata)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.StorageKey,
		doc.OriginalName,
		doc.MimeType,
		doc.SizeBytes,
		nullString(doc.Checksum),
		doc.ExtractedText,
		nullStringPtr(doc.Summary),
		nullStringPtr(doc.DocumentType),
		metadata,
		doc.Analyzed,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return err
}

// GetByID fetches a document by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	query := `
SELECT ` + selectColumns + `
FROM documents
WHERE id = $1
LIMIT 1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// Save writes the mutable columns of doc in a single-row update.
func (r *PGRepo) Save(ctx context.Context, doc Document) error {
	const query = `
UPDATE documents
SET extracted_text = $2,
    summary = $3,
    document_type = $4,
    metadata = $5,
    analyzed = $6,
    updated_at = $7
WHERE id = $1`

	metadata, err := encodeMetadata(doc.Metadata)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.ExtractedText,
		nullStringPtr(doc.Summary),
		nullStringPtr(doc.DocumentType),
		metadata,
		doc.Analyzed,
		doc.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// List lists documents ordered newest-first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	query := `
SELECT ` + selectColumns + `
FROM documents
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2`

	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Delete removes a document row.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var checksum sql.NullString
	var summary sql.NullString
	var documentType sql.NullString
	var metadata []byte
	if err := row.Scan(
		&doc.ID,
		&doc.StorageKey,
		&doc.OriginalName,
		&doc.MimeType,
		&doc.SizeBytes,
		&checksum,
		&doc.ExtractedText,
		&summary,
		&documentType,
		&metadata,
		&doc.Analyzed,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	); err != nil {
		return Document{}, err
	}
	if checksum.Valid {
		doc.Checksum = checksum.String
	}
	if summary.Valid {
		s := summary.String
		doc.Summary = &s
	}
	if documentType.Valid {
		t := documentType.String
		doc.DocumentType = &t
	}
	if len(metadata) > 0 && string(metadata) != "null" {
		if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
			return Document{}, fmt.Errorf("decode metadata for %s: %w", doc.ID, err)
		}
	}
	return doc, nil
}

func encodeMetadata(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return string(b), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var _ DocumentsRepo = (*PGRepo)(nil)
