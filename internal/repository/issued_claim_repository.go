package repository

import (
	"context"

	"go-backend/internal/models"

	"gorm.io/gorm"
)

// IssuedClaimRepository defines the interface for the issued-claim audit log
type IssuedClaimRepository interface {
	Create(ctx context.Context, claim *models.IssuedClaim) error
	List(ctx context.Context, page, pageSize int) ([]*models.IssuedClaim, int64, error)
	FindByFID(ctx context.Context, fid uint64) ([]*models.IssuedClaim, error)
}

// issuedClaimRepository implements IssuedClaimRepository
type issuedClaimRepository struct {
	db *gorm.DB
}

// NewIssuedClaimRepository creates a new IssuedClaimRepository instance
func NewIssuedClaimRepository(db *gorm.DB) IssuedClaimRepository {
	return &issuedClaimRepository{db: db}
}

// Create records an issued authorization
func (r *issuedClaimRepository) Create(ctx context.Context, claim *models.IssuedClaim) error {
	return r.db.WithContext(ctx).Create(claim).Error
}

// List retrieves paginated issued claims, newest first
func (r *issuedClaimRepository) List(ctx context.Context, page, pageSize int) ([]*models.IssuedClaim, int64, error) {
	var claims []*models.IssuedClaim
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.IssuedClaim{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).
		Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&claims).Error

	return claims, total, err
}

// FindByFID finds issued claims for one identity
func (r *issuedClaimRepository) FindByFID(ctx context.Context, fid uint64) ([]*models.IssuedClaim, error) {
	var claims []*models.IssuedClaim
	err := r.db.WithContext(ctx).
		Where("fid = ?", fid).
		Order("created_at DESC").
		Find(&claims).Error
	return claims, err
}
