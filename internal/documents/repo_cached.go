package documents

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedRepo keeps recently read records in an LRU in front of another repo.
// List always goes to the underlying repo.
type CachedRepo struct {
	next  DocumentsRepo
	cache *lru.Cache[string, Document]
}

// NewCachedRepo wraps next. A non-positive size returns next unchanged.
func NewCachedRepo(next DocumentsRepo, size int) (DocumentsRepo, error) {
	if size <= 0 {
		return next, nil
	}
	cache, err := lru.New[string, Document](size)
	if err != nil {
		return nil, err
	}
	return &CachedRepo{next: next, cache: cache}, nil
}

func (r *CachedRepo) Create(ctx context.Context, doc Document) error {
	if err := r.next.Create(ctx, doc); err != nil {
		return err
	}
	r.cache.Add(doc.ID, doc.clone())
	return nil
}

func (r *CachedRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if doc, ok := r.cache.Get(id); ok {
		return doc.clone(), nil
	}
	doc, err := r.next.GetByID(ctx, id)
	if err != nil {
		return Document{}, err
	}
	r.cache.Add(id, doc.clone())
	return doc, nil
}

func (r *CachedRepo) Save(ctx context.Context, doc Document) error {
	if err := r.next.Save(ctx, doc); err != nil {
		r.cache.Remove(doc.ID)
		return err
	}
	r.cache.Add(doc.ID, doc.clone())
	return nil
}

func (r *CachedRepo) List(ctx context.Context, limit, offset int) ([]Document, error) {
	return r.next.List(ctx, limit, offset)
}

func (r *CachedRepo) Delete(ctx context.Context, id string) error {
	r.cache.Remove(id)
	return r.next.Delete(ctx, id)
}

var _ DocumentsRepo = (*CachedRepo)(nil)
