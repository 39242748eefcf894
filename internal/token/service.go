// Package token issues and resolves bearer capability tokens.
package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/orderflow/internal/model"
)

var (
	// ErrTokenNotFound covers unknown tokens, deleted documents and tokens
	// presented for the wrong capability or document alike.
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")

	ErrCapabilityMismatch = errors.New("capability does not apply to document type")
)

// idBytes is 256 bits of randomness per token.
const idBytes = 32

type Store interface {
	CreateToken(ctx context.Context, token *model.Token) error
	GetToken(ctx context.Context, id string) (*model.Token, error)
	UpdateTokenExpiry(ctx context.Context, id string, expiresAt *time.Time) error
	DeleteTokensForDocument(ctx context.Context, docType model.DocumentType, docID uuid.UUID) ([]string, error)
	// AfterCommit defers fn until the store's transaction commits.
	AfterCommit(fn func())
}

// Cache holds resolved tokens. Implementations must treat every failure as a
// miss.
type Cache interface {
	Get(ctx context.Context, id string) (*model.Token, bool)
	Set(ctx context.Context, token model.Token)
	Delete(ctx context.Context, ids ...string)
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*model.Token, bool) { return nil, false }
func (noopCache) Set(context.Context, model.Token)                 {}
func (noopCache) Delete(context.Context, ...string)                {}

type Service struct {
	store Store
	cache Cache
	now   func() time.Time
}

func NewService(store Store, cache Cache, now func() time.Time) *Service {
	if cache == nil {
		cache = noopCache{}
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, cache: cache, now: now}
}

// With returns a service writing through store, typically an open
// transaction.
func (s *Service) With(store Store) *Service {
	return &Service{store: store, cache: s.cache, now: s.now}
}

func NewID() (string, error) {
	buf := make([]byte, idBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *Service) Issue(
	ctx context.Context,
	docType model.DocumentType,
	docID uuid.UUID,
	capability model.Capability,
	expiresAt *time.Time,
) (*model.Token, error) {
	if capability.DocumentType() != docType {
		return nil, fmt.Errorf("%w: %s on %s", ErrCapabilityMismatch, capability, docType)
	}
	id, err := NewID()
	if err != nil {
		return nil, err
	}
	token := &model.Token{
		ID:           id,
		DocumentType: docType,
		DocumentID:   docID,
		Capability:   capability,
		ExpiresAt:    expiresAt,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateToken(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// Resolve returns the token if it exists, grants capability and has not
// expired. Resolution has no side effects.
func (s *Service) Resolve(ctx context.Context, id string, capability model.Capability) (*model.Token, error) {
	if id == "" {
		return nil, ErrTokenNotFound
	}
	token, ok := s.cache.Get(ctx, id)
	if !ok {
		var err error
		token, err = s.store.GetToken(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTokenNotFound
			}
			return nil, err
		}
		s.cache.Set(ctx, *token)
	}
	if token.Capability != capability {
		return nil, ErrTokenNotFound
	}
	if token.Expired(s.now()) {
		return nil, ErrTokenExpired
	}
	return token, nil
}

// Authorize resolves the token and additionally requires it to be bound to
// the given document.
func (s *Service) Authorize(ctx context.Context, id string, capability model.Capability, docID uuid.UUID) (*model.Token, error) {
	token, err := s.Resolve(ctx, id, capability)
	if err != nil {
		return nil, err
	}
	if token.DocumentID != docID || token.DocumentType != capability.DocumentType() {
		return nil, ErrTokenNotFound
	}
	return token, nil
}

// Extend moves the expiry of an existing token, for example when a price
// list's validity window changes after it was shared.
func (s *Service) Extend(ctx context.Context, id string, expiresAt *time.Time) error {
	if err := s.store.UpdateTokenExpiry(ctx, id, expiresAt); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTokenNotFound
		}
		return err
	}
	s.evict(ctx, id)
	return nil
}

// Revoke removes every token bound to the document.
func (s *Service) Revoke(ctx context.Context, docType model.DocumentType, docID uuid.UUID) error {
	ids, err := s.store.DeleteTokensForDocument(ctx, docType, docID)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		s.evict(ctx, ids...)
	}
	return nil
}

// evict drops cached copies after the change commits.
func (s *Service) evict(ctx context.Context, ids ...string) {
	s.store.AfterCommit(func() {
		s.cache.Delete(context.WithoutCancel(ctx), ids...)
	})
}
