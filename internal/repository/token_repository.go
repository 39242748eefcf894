package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/orderflow/internal/model"
)

func (s *Store) CreateToken(ctx context.Context, token *model.Token) error {
	return s.create(ctx, token)
}

func (s *Store) GetToken(ctx context.Context, id string) (*model.Token, error) {
	var token model.Token
	if err := s.get(ctx, &token, id); err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *Store) UpdateTokenExpiry(ctx context.Context, id string, expiresAt *time.Time) error {
	res := s.db.WithContext(ctx).Model(&model.Token{}).Where("id = ?", id).Update("expires_at", expiresAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Store) ListTokensForDocument(ctx context.Context, docType model.DocumentType, docID uuid.UUID) ([]model.Token, error) {
	var tokens []model.Token
	err := s.db.WithContext(ctx).
		Where("document_type = ? AND document_id = ?", docType, docID).
		Order("created_at ASC").
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// DeleteTokensForDocument removes every token bound to the document and
// returns the ids that were removed.
func (s *Store) DeleteTokensForDocument(ctx context.Context, docType model.DocumentType, docID uuid.UUID) ([]string, error) {
	tokens, err := s.ListTokensForDocument(ctx, docType, docID)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(tokens))
	for _, t := range tokens {
		ids = append(ids, t.ID)
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Token{}).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
