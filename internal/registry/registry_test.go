package registry

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"go.uber.org/zap"
)

func newTestRegistry() (*Registry, *MemoryStore) {
	store := NewMemoryStore()
	return New(store, zap.NewNop()), store
}

func TestStoreLookupRoundTrip(t *testing.T) {
	reg, _ := newTestRegistry()
	ctx := context.Background()

	code, err := reg.Store(ctx, "file-id-123", KindDocument, "a caption", 42)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	rec, err := reg.Lookup(ctx, code)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec.ContentRef != "file-id-123" {
		t.Errorf("expected content ref %q, got %q", "file-id-123", rec.ContentRef)
	}
	if rec.Kind != KindDocument {
		t.Errorf("expected kind %q, got %q", KindDocument, rec.Kind)
	}
	if rec.Caption != "a caption" {
		t.Errorf("expected caption %q, got %q", "a caption", rec.Caption)
	}
	if rec.UploaderID != 42 {
		t.Errorf("expected uploader 42, got %d", rec.UploaderID)
	}
}

func TestLookupUnknownCode(t *testing.T) {
	reg, _ := newTestRegistry()

	_, err := reg.Lookup(context.Background(), "doesnotexist")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCodesAreUniqueAndWellFormed(t *testing.T) {
	reg, _ := newTestRegistry()
	ctx := context.Background()

	hexCode := regexp.MustCompile(`^[0-9a-f]{8}$`)
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		code, err := reg.Store(ctx, "ref", KindPhoto, "", 1)
		if err != nil {
			t.Fatalf("Store #%d: %v", i, err)
		}
		if !hexCode.MatchString(code) {
			t.Fatalf("code %q is not 8 lowercase hex chars", code)
		}
		if _, dup := seen[code]; dup {
			t.Fatalf("code %q issued twice", code)
		}
		seen[code] = struct{}{}
	}
}

// collidingStore rejects the first n inserts as duplicates.
type collidingStore struct {
	*MemoryStore
	rejects int
}

func (s *collidingStore) Insert(ctx context.Context, rec *MediaRecord) error {
	if s.rejects > 0 {
		s.rejects--
		return ErrCodeTaken
	}
	return s.MemoryStore.Insert(ctx, rec)
}

func TestStoreRegeneratesOnCollision(t *testing.T) {
	store := &collidingStore{MemoryStore: NewMemoryStore(), rejects: 2}
	reg := New(store, zap.NewNop())

	code, err := reg.Store(context.Background(), "ref", KindVideo, "", 1)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := reg.Lookup(context.Background(), code); err != nil {
		t.Fatalf("record not present after collision retries: %v", err)
	}
}

func TestStoreGivesUpAfterRepeatedCollisions(t *testing.T) {
	store := &collidingStore{MemoryStore: NewMemoryStore(), rejects: maxAttempts + 1}
	reg := New(store, zap.NewNop())

	if _, err := reg.Store(context.Background(), "ref", KindVideo, "", 1); err == nil {
		t.Fatal("expected error after exhausting collision retries")
	}
}

// failingStore simulates a broken backend.
type failingStore struct {
	*MemoryStore
	err error
}

func (s *failingStore) Insert(context.Context, *MediaRecord) error { return s.err }

func (s *failingStore) Get(context.Context, string) (*MediaRecord, error) { return nil, s.err }

func TestStorageFailureIsNotNotFound(t *testing.T) {
	backendErr := errors.New("disk on fire")
	store := &failingStore{MemoryStore: NewMemoryStore(), err: backendErr}
	reg := New(store, zap.NewNop())
	ctx := context.Background()

	if _, err := reg.Store(ctx, "ref", KindPhoto, "", 1); !errors.Is(err, backendErr) {
		t.Errorf("expected wrapped backend error from Store, got %v", err)
	}

	_, err := reg.Lookup(ctx, "a1b2c3")
	if errors.Is(err, ErrNotFound) {
		t.Error("storage failure must not look like NotFound")
	}
	if !errors.Is(err, backendErr) {
		t.Errorf("expected backend error from Lookup, got %v", err)
	}
}

func TestConcurrentStores(t *testing.T) {
	reg, _ := newTestRegistry()
	ctx := context.Background()

	const workers = 16
	const perWorker = 25

	codes := make(chan string, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				code, err := reg.Store(ctx, "ref", KindPhoto, "", 1)
				if err != nil {
					t.Errorf("Store: %v", err)
					return
				}
				codes <- code
			}
		}()
	}
	wg.Wait()
	close(codes)

	seen := make(map[string]struct{})
	for code := range codes {
		if _, dup := seen[code]; dup {
			t.Fatalf("code %q issued twice under concurrency", code)
		}
		seen[code] = struct{}{}
		if _, err := reg.Lookup(ctx, code); err != nil {
			t.Fatalf("Lookup(%q): %v", code, err)
		}
	}
}

func TestCount(t *testing.T) {
	reg, _ := newTestRegistry()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := reg.Store(ctx, "ref", KindDocument, "", 1); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}

	n, err := reg.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 records, got %d", n)
	}
}
