package documents

import (
	"context"
	"errors"
	"sync"
	"time"

	"docsum-backend/internal/analysis"
	"docsum-backend/internal/queue"
	"docsum-backend/internal/shared/storage/object"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	delErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (s *memStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return key, nil
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, object.ErrNotFound
	}
	return data, nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	if s.delErr != nil {
		return s.delErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStore) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://blobs.local/" + key + "?ttl=" + ttl.String(), nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type stubAnalyzer struct {
	outcome analysis.Outcome
	err     error
	texts   []string
}

func (a *stubAnalyzer) Analyze(ctx context.Context, text string) (analysis.Outcome, error) {
	a.texts = append(a.texts, text)
	return a.outcome, a.err
}

type recordingQueue struct {
	msgs []queue.Message
	err  error
}

func (q *recordingQueue) Send(ctx context.Context, msg queue.Message) error {
	if q.err != nil {
		return q.err
	}
	q.msgs = append(q.msgs, msg)
	return nil
}

var errBoom = errors.New("boom")
