package documents

import "context"

// DocumentsRepo defines persistence operations for documents.
type DocumentsRepo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, id string) (Document, error)
	// Save overwrites the stored record with doc.
	Save(ctx context.Context, doc Document) error
	// List returns records newest-first.
	List(ctx context.Context, limit, offset int) ([]Document, error)
	Delete(ctx context.Context, id string) error
}
