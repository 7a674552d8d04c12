package coupons

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/eshop-backend/pkg/db/models"
)

// Repository looks coupons up by name.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a coupon repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindValidByName returns the coupon named name that has not expired at now.
// It returns gorm.ErrRecordNotFound when the coupon is absent or expired.
func (r *Repository) FindValidByName(ctx context.Context, name string, now time.Time) (*models.Coupon, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("name = ? AND expires_at > ?", name, now).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}
