package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrDuplicate = errors.New("duplicate record")

// Store is the document store. A Store returned inside InTx is bound to the
// open transaction; every read through it that must be re-validated at write
// time goes through a Lock* method.
type Store struct {
	db          *gorm.DB
	afterCommit *[]func()
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// InTx runs fn in a single transaction. Returning an error rolls back every
// write made through tx.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.afterCommit != nil {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&Store{db: tx, afterCommit: s.afterCommit})
		})
	}
	var hooks []func()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, afterCommit: &hooks})
	})
	if err != nil {
		return err
	}
	for _, hook := range hooks {
		hook()
	}
	return nil
}

// AfterCommit runs fn once the enclosing transaction commits. Outside a
// transaction fn runs immediately. Rolled back transactions drop their hooks.
func (s *Store) AfterCommit(fn func()) {
	if s.afterCommit == nil {
		fn()
		return
	}
	*s.afterCommit = append(*s.afterCommit, fn)
}

func (s *Store) get(ctx context.Context, dest interface{}, id interface{}) error {
	return s.db.WithContext(ctx).First(dest, "id = ?", id).Error
}

// lock reads the row with SELECT ... FOR UPDATE. Drivers without row locks
// (sqlite) serialise writers at the database level instead.
func (s *Store) lock(ctx context.Context, dest interface{}, id uuid.UUID) error {
	return s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(dest, "id = ?", id).Error
}

func (s *Store) save(ctx context.Context, doc interface{}) error {
	return s.db.WithContext(ctx).Save(doc).Error
}

func (s *Store) create(ctx context.Context, doc interface{}) error {
	err := s.db.WithContext(ctx).Create(doc).Error
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// increment bumps a counter column in place so concurrent viewers never lose
// an update.
func (s *Store) increment(ctx context.Context, m interface{}, id uuid.UUID, column string) error {
	res := s.db.WithContext(ctx).
		Model(m).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
