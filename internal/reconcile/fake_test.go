package reconcile

import (
	"context"
	"fmt"
	"sync"
)

// fakeRepo is an in-memory Repository with call recording and error injection.
type fakeRepo[T any] struct {
	mu      sync.Mutex
	records []T
	nextID  int
	id      func(T) string
	withID  func(T, string) T

	defines []T
	deletes [][]string
	lists   int

	failDefine func(T) error
	failDelete func(id string) error
	listErr    error
}

func newFakeRepo[T any](id func(T) string, withID func(T, string) T, seed ...T) *fakeRepo[T] {
	return &fakeRepo[T]{records: seed, nextID: 100, id: id, withID: withID}
}

func (f *fakeRepo[T]) List(_ context.Context, _ string) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]T, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeRepo[T]) Define(_ context.Context, rec T) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defines = append(f.defines, rec)
	if f.failDefine != nil {
		if err := f.failDefine(rec); err != nil {
			var zero T
			return zero, err
		}
	}
	if f.id(rec) == "" {
		f.nextID++
		rec = f.withID(rec, fmt.Sprintf("%d", f.nextID))
		f.records = append(f.records, rec)
		return rec, nil
	}
	for i, r := range f.records {
		if f.id(r) == f.id(rec) {
			f.records[i] = rec
			return rec, nil
		}
	}
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeRepo[T]) Delete(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, ids)
	for _, id := range ids {
		if f.failDelete != nil {
			if err := f.failDelete(id); err != nil {
				return err
			}
		}
		for i, r := range f.records {
			if f.id(r) == id {
				f.records = append(f.records[:i], f.records[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (f *fakeRepo[T]) calls() (defines, deletes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.defines), len(f.deletes)
}

func (f *fakeRepo[T]) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defines = nil
	f.deletes = nil
}

func (f *fakeRepo[T]) snapshot() []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]T, len(f.records))
	copy(out, f.records)
	return out
}
