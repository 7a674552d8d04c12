package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/angelmondragon/eshop-backend/internal/products"
	"github.com/angelmondragon/eshop-backend/pkg/db"
	"github.com/angelmondragon/eshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/eshop-backend/pkg/errors"
	"github.com/angelmondragon/eshop-backend/pkg/logger"
	"github.com/angelmondragon/eshop-backend/pkg/types"
)

const cartOwnerConstraint = "carts_user_id_key"

var errOwnerRace = errors.New("cart created concurrently")

// Service exposes the cart mutations available to a cart owner.
type Service interface {
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*AddItemResult, error)
	UpdateItemCount(ctx context.Context, userID, itemID uuid.UUID, count int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	ApplyCoupon(ctx context.Context, userID uuid.UUID, couponName string) (*models.Cart, error)
	Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
}

// AddItemInput is the add-to-cart request.
type AddItemInput struct {
	ProductID uuid.UUID
	Color     string
	Count     int
}

// AddItemResult carries the updated cart plus what was added.
type AddItemResult struct {
	Cart         *models.Cart
	ProductTitle string
	Added        int
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products productLoader
	coupons  couponLoader
	cache    Cache
	logg     *logger.Logger
	sfg      singleflight.Group
	now      func() time.Time
}

// NewService builds a cart service. cache may be nil.
func NewService(repo CartRepository, tx txRunner, productRepo productLoader, couponRepo couponLoader, cache Cache, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if couponRepo == nil {
		return nil, fmt.Errorf("coupon loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cache == nil {
		cache = noopCache{}
	}
	return &service{
		repo:     repo,
		tx:       tx,
		products: productRepo,
		coupons:  couponRepo,
		cache:    cache,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*AddItemResult, error) {
	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, products.NotFound(input.ProductID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if input.Count <= 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeInvalidQuantity, "Invalid quantity: %d. Quantity must be greater than 0", input.Count)
	}
	color := strings.TrimSpace(input.Color)

	var cart *models.Cart
	for attempt := 0; attempt < 2; attempt++ {
		cart, err = s.addItemOnce(ctx, userID, product, color, input.Count)
		if !errors.Is(err, errOwnerRace) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, errOwnerRace) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart is being created by another request")
		}
		return nil, err
	}

	s.invalidate(ctx, userID)
	return &AddItemResult{Cart: cart, ProductTitle: product.Title, Added: input.Count}, nil
}

func (s *service) addItemOnce(ctx context.Context, userID uuid.UUID, product *models.Product, color string, count int) (*models.Cart, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	isNew := false
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		cart = &models.Cart{ID: uuid.New(), UserID: userID}
		isNew = true
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	line := findLine(cart.Items, product.ID, color)
	if line != nil {
		if line.Count+count > product.Quantity {
			return nil, products.InsufficientStock(product, line.Count, count)
		}
	} else if count > product.Quantity {
		return nil, products.InsufficientStock(product, 0, count)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if isNew {
			if err := repo.Create(ctx, cart); err != nil {
				if db.IsUniqueViolation(err, cartOwnerConstraint) {
					return errOwnerRace
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
			}
		}

		if line != nil {
			line.Count += count
			if err := repo.UpdateItemCount(ctx, line.ID, line.Count); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
			}
		} else {
			item := models.CartItem{
				ID:        uuid.New(),
				CartID:    cart.ID,
				ProductID: product.ID,
				Color:     color,
				Price:     product.Price,
				Count:     count,
			}
			if err := repo.CreateItem(ctx, &item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart item")
			}
			cart.Items = append(cart.Items, item)
		}

		recalculate(cart)
		if err := s.saveTotals(ctx, repo, cart); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart totals")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) UpdateItemCount(ctx context.Context, userID, itemID uuid.UUID, count int) (*models.Cart, error) {
	cart, err := s.loadOwned(ctx, userID)
	if err != nil {
		return nil, err
	}
	item := findItem(cart.Items, itemID)
	if item == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "No Product Cart item found for this id: %s", itemID)
	}
	if count <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "Product quantity must be greater than 0")
	}

	product, err := s.products.FindByID(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, products.NotFound(item.ProductID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if count > product.Quantity {
		return nil, products.InsufficientStock(product, 0, count)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateItemCount(ctx, item.ID, count); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
		}
		item.Count = count
		recalculate(cart)
		if err := s.saveTotals(ctx, repo, cart); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart totals")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	return cart, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error) {
	cart, err := s.loadOwned(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.DeleteItem(ctx, cart.ID, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart item")
		}
		cart.Items = withoutItem(cart.Items, itemID)
		recalculate(cart)
		if err := s.saveTotals(ctx, repo, cart); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart totals")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	return cart, nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.repo.FindByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.invalidate(ctx, userID)
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, cart.ID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart")
	}

	s.invalidate(ctx, userID)
	return nil
}

func (s *service) ApplyCoupon(ctx context.Context, userID uuid.UUID, couponName string) (*models.Cart, error) {
	cart, err := s.loadOwned(ctx, userID)
	if err != nil {
		return nil, err
	}

	coupon, err := s.coupons.FindValidByName(ctx, couponName, s.now().UTC())
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
		}
		cart.TotalAfterDiscount = nil
		cart.CouponName = nil
		if err := s.saveTotals(ctx, s.repo, cart); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart coupon")
		}
		s.invalidate(ctx, userID)
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCoupon, "Coupon is invalid or has expired")
	}

	recalculate(cart)
	discounted := types.ApplyPercentDiscount(cart.TotalPrice, coupon.Discount)
	name := coupon.Name
	cart.TotalAfterDiscount = &discounted
	cart.CouponName = &name

	if err := s.saveTotals(ctx, s.repo, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart coupon")
	}

	s.invalidate(ctx, userID)
	return cart, nil
}

// Get reads through the cache. Concurrent misses for the same owner share a
// single database load.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	v, err, _ := s.sfg.Do(userID.String(), func() (any, error) {
		cached, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart.cache_get_failed")
		}

		// The version is read before the load; a mutation committed in
		// between bumps it and the stale copy is not stored.
		version, verr := s.cache.Version(ctx, userID)
		cart, err := s.loadOwned(ctx, userID)
		if err != nil {
			return nil, err
		}
		if verr != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", verr.Error()), "cart.cache_version_failed")
			return cart, nil
		}
		if _, err := s.cache.SetIfVersion(ctx, userID, version, cart); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart.cache_set_failed")
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Cart), nil
}

func (s *service) loadOwned(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "No cart exist for this user: %s", userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return cart, nil
}

func (s *service) saveTotals(ctx context.Context, repo CartRepository, cart *models.Cart) error {
	cart.UpdatedAt = s.now().UTC()
	return repo.SaveTotals(ctx, cart)
}

func (s *service) invalidate(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart.cache_invalidate_failed")
	}
}
