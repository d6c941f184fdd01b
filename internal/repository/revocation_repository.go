// Package repository provides data access interfaces and implementations
package repository

import (
	"context"

	"go-backend/internal/models"

	"gorm.io/gorm"
)

// RevocationRepository defines the interface for RevocationRecord data access
type RevocationRepository interface {
	Create(ctx context.Context, record *models.RevocationRecord) error

	// FindByTriple returns all records matching the lowercase
	// (wallet, token, spender) triple, oldest first. Callers apply
	// first-match-wins semantics when the store holds duplicates.
	FindByTriple(ctx context.Context, wallet, token, spender string) ([]*models.RevocationRecord, error)

	// CountByWalletAndFID counts revocations recorded for a wallet under a
	// given FID; used by the voucher path, which has no token/spender pair.
	CountByWalletAndFID(ctx context.Context, wallet string, fid uint64) (int64, error)
}

// revocationRepository implements RevocationRepository
type revocationRepository struct {
	db *gorm.DB
}

// NewRevocationRepository creates a new RevocationRepository instance
func NewRevocationRepository(db *gorm.DB) RevocationRepository {
	return &revocationRepository{db: db}
}

// Create creates a new revocation record
func (r *revocationRepository) Create(ctx context.Context, record *models.RevocationRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindByTriple finds revocation records by the exact lowercase triple
func (r *revocationRepository) FindByTriple(ctx context.Context, wallet, token, spender string) ([]*models.RevocationRecord, error) {
	var records []*models.RevocationRecord
	err := r.db.WithContext(ctx).
		Where("wallet = ? AND token = ? AND spender = ?", wallet, token, spender).
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}

// CountByWalletAndFID counts revocations by wallet and FID
func (r *revocationRepository) CountByWalletAndFID(ctx context.Context, wallet string, fid uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RevocationRecord{}).
		Where("wallet = ? AND fid = ?", wallet, fid).
		Count(&count).Error
	return count, err
}
