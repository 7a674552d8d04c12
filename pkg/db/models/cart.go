package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cart is the single active cart of a user. TotalAfterDiscount and CouponName
// are either both set or both nil.
type Cart struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID             uuid.UUID        `gorm:"column:user_id;type:uuid;not null;uniqueIndex:carts_user_id_key"`
	TotalPrice         decimal.Decimal  `gorm:"column:total_price;type:numeric(12,2);not null;default:0"`
	TotalAfterDiscount *decimal.Decimal `gorm:"column:total_after_discount;type:numeric(12,2)"`
	CouponName         *string          `gorm:"column:coupon_name"`
	Items              []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// EffectiveTotal is the discounted total when a coupon is applied.
func (c Cart) EffectiveTotal() decimal.Decimal {
	if c.TotalAfterDiscount != nil {
		return *c.TotalAfterDiscount
	}
	return c.TotalPrice
}
