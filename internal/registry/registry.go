package registry

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	// ErrNotFound — a well-formed code with no record behind it.
	// Callers must render this differently from a storage failure.
	ErrNotFound = errors.New("code not found")
	// ErrCodeTaken — insert refused because the code already exists.
	ErrCodeTaken = errors.New("code already taken")
)

// Store is the persistence backend for media records. Insert must fail
// with ErrCodeTaken on a duplicate code rather than overwrite, and Get
// must return ErrNotFound for an absent one.
type Store interface {
	Insert(ctx context.Context, rec *MediaRecord) error
	Get(ctx context.Context, code string) (*MediaRecord, error)
	Count(ctx context.Context) (int64, error)
}

// Registry maps short opaque codes to stored media references.
// It is the sole source of truth for what a deep-link points to.
type Registry struct {
	store Store
	log   *zap.Logger
}

func New(store Store, log *zap.Logger) *Registry {
	return &Registry{store: store, log: log}
}

// codeBytes of entropy per code; hex-encoded, so codes are 8 chars
// from [0-9a-f] and safe to embed in a start parameter unescaped.
const codeBytes = 4

// maxAttempts bounds regeneration on code collisions.
const maxAttempts = 5

// Store persists a new record under a freshly generated code and
// returns the code only after the write has succeeded, so a published
// link can never point at an unrecorded code.
func (r *Registry) Store(ctx context.Context, contentRef string, kind Kind, caption string, uploaderID int64) (string, error) {
	for attempt := 1; ; attempt++ {
		code, err := newCode()
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}

		rec := &MediaRecord{
			Code:       code,
			ContentRef: contentRef,
			Kind:       kind,
			Caption:    caption,
			UploaderID: uploaderID,
		}

		err = r.store.Insert(ctx, rec)
		if err == nil {
			r.log.Info("media record stored",
				zap.String("code", code),
				zap.String("kind", string(kind)),
				zap.Int64("uploader_id", uploaderID),
			)
			return code, nil
		}

		if errors.Is(err, ErrCodeTaken) && attempt < maxAttempts {
			r.log.Warn("code collision, regenerating",
				zap.String("code", code),
				zap.Int("attempt", attempt),
			)
			continue
		}

		return "", fmt.Errorf("persist media record: %w", err)
	}
}

// Lookup resolves a code to its record. Exact match, case-sensitive,
// no side effects.
func (r *Registry) Lookup(ctx context.Context, code string) (*MediaRecord, error) {
	return r.store.Get(ctx, code)
}

// Count reports how many records the registry holds.
func (r *Registry) Count(ctx context.Context) (int64, error) {
	return r.store.Count(ctx)
}

func newCode() (string, error) {
	buf := make([]byte, codeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
