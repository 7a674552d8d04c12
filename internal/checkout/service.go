package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/eshop-backend/internal/cart"
	"github.com/angelmondragon/eshop-backend/internal/checkout/inventory"
	"github.com/angelmondragon/eshop-backend/internal/notifications"
	"github.com/angelmondragon/eshop-backend/internal/orders"
	"github.com/angelmondragon/eshop-backend/pkg/db"
	"github.com/angelmondragon/eshop-backend/pkg/db/models"
	"github.com/angelmondragon/eshop-backend/pkg/email"
	"github.com/angelmondragon/eshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eshop-backend/pkg/errors"
	"github.com/angelmondragon/eshop-backend/pkg/logger"
	"github.com/angelmondragon/eshop-backend/pkg/metrics"
	pkgstripe "github.com/angelmondragon/eshop-backend/pkg/stripe"
	"github.com/angelmondragon/eshop-backend/pkg/types"
)

const paymentRefIndex = "idx_orders_payment_ref"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type productLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type cartInvalidator interface {
	Delete(ctx context.Context, userID uuid.UUID) error
}

type sessionCreator interface {
	CreateCheckoutSession(ctx context.Context, p pkgstripe.CheckoutSessionParams) (*pkgstripe.CheckoutSession, error)
}

type notifier interface {
	Enqueue(ctx context.Context, msg email.Message) bool
}

// Service converts carts into orders.
type Service interface {
	PlaceCashOrder(ctx context.Context, userID, cartID uuid.UUID, shipping types.ShippingAddress) (*models.Order, error)
	CreateSession(ctx context.Context, userID, cartID uuid.UUID, shipping types.ShippingAddress) (*pkgstripe.CheckoutSession, error)
	CompleteCardCheckout(ctx context.Context, payment CardPayment) (*models.Order, error)
}

// CardPayment is a completed hosted checkout reported by the payment provider.
type CardPayment struct {
	SessionID     string
	CartID        uuid.UUID
	CustomerEmail string
	AmountTotal   int64
	Shipping      types.ShippingAddress
}

// Pricing holds the flat charges added to every order.
type Pricing struct {
	TaxPrice      decimal.Decimal
	ShippingPrice decimal.Decimal
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	TransactionRunner txRunner
	CartRepo          cart.CartRepository
	OrdersRepo        orders.Repository
	Users             userLoader
	Products          productLoader
	Ledger            *inventory.Ledger
	CartCache         cartInvalidator
	Sessions          sessionCreator
	Notifier          notifier
	AdminEmail        string
	Pricing           Pricing
	Metrics           *metrics.CheckoutMetrics
	Logger            *logger.Logger
}

type service struct {
	tx         txRunner
	carts      cart.CartRepository
	orders     orders.Repository
	users      userLoader
	products   productLoader
	ledger     *inventory.Ledger
	cache      cartInvalidator
	sessions   sessionCreator
	notifier   notifier
	adminEmail string
	pricing    Pricing
	metrics    *metrics.CheckoutMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds the checkout service. Sessions may be nil when card
// payments are disabled; Notifier may be nil to skip admin emails.
func NewService(params ServiceParams) (Service, error) {
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.OrdersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	ledger := params.Ledger
	if ledger == nil {
		ledger = inventory.NewLedger(inventory.ModeConditional)
	}
	return &service{
		tx:         params.TransactionRunner,
		carts:      params.CartRepo,
		orders:     params.OrdersRepo,
		users:      params.Users,
		products:   params.Products,
		ledger:     ledger,
		cache:      params.CartCache,
		sessions:   params.Sessions,
		notifier:   params.Notifier,
		adminEmail: strings.TrimSpace(params.AdminEmail),
		pricing:    params.Pricing,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        time.Now,
	}, nil
}

func cartNotFound(cartID, userID uuid.UUID) *pkgerrors.Error {
	if userID == uuid.Nil {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "There is no cart with id: %s", cartID)
	}
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "There is no cart for this user: %s", userID)
}

func (s *service) PlaceCashOrder(ctx context.Context, userID, cartID uuid.UUID, shipping types.ShippingAddress) (*models.Order, error) {
	var (
		order *models.Order
		owner uuid.UUID
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		record, err := s.loadCart(ctx, tx, cartID, userID)
		if err != nil {
			return err
		}
		owner = record.UserID
		order = s.newOrder(record, enums.PaymentMethodCash, shipping)
		return s.convert(ctx, tx, record, order)
	})
	if err != nil {
		return nil, s.reject(err)
	}

	s.afterCommit(ctx, owner, order)
	return order, nil
}

func (s *service) CreateSession(ctx context.Context, userID, cartID uuid.UUID, shipping types.ShippingAddress) (*pkgstripe.CheckoutSession, error) {
	if s.sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "card payments are not configured")
	}
	record, err := s.loadCart(ctx, nil, cartID, userID)
	if err != nil {
		return nil, err
	}
	buyer, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	total := s.orderTotal(record)
	session, err := s.sessions.CreateCheckoutSession(ctx, pkgstripe.CheckoutSessionParams{
		LineName:          buyer.Name,
		Amount:            types.MinorUnits(total),
		CustomerEmail:     buyer.Email,
		ClientReferenceID: record.ID.String(),
		Metadata:          shipping.Metadata(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	return session, nil
}

// CompleteCardCheckout creates the paid order for a finished hosted checkout.
// Replays of the same session return the order created the first time.
func (s *service) CompleteCardCheckout(ctx context.Context, payment CardPayment) (*models.Order, error) {
	if strings.TrimSpace(payment.SessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session id required")
	}
	if existing, err := s.orders.FindByPaymentRef(ctx, payment.SessionID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order by payment ref")
	}

	var buyerID uuid.UUID
	if payment.CustomerEmail != "" {
		buyer, err := s.users.FindByEmail(ctx, payment.CustomerEmail)
		switch {
		case err == nil:
			buyerID = buyer.ID
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load buyer")
		}
	}

	var (
		order *models.Order
		owner uuid.UUID
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		record, err := s.loadCart(ctx, tx, payment.CartID, uuid.Nil)
		if err != nil {
			return err
		}
		owner = record.UserID
		if buyerID == uuid.Nil {
			buyerID = record.UserID
		}

		order = s.newOrder(record, enums.PaymentMethodCard, payment.Shipping)
		order.UserID = buyerID
		if payment.AmountTotal > 0 {
			order.TotalPrice = decimal.New(payment.AmountTotal, -2)
		}
		paidAt := s.now().UTC()
		ref := payment.SessionID
		order.IsPaid = true
		order.PaidAt = &paidAt
		order.PaymentRef = &ref
		return s.convert(ctx, tx, record, order)
	})
	if err != nil {
		if db.IsUniqueViolation(err, paymentRefIndex) || db.IsUniqueViolation(err, "orders.payment_ref") {
			existing, ferr := s.orders.FindByPaymentRef(ctx, payment.SessionID)
			if ferr == nil {
				return existing, nil
			}
		}
		return nil, s.reject(err)
	}

	s.afterCommit(ctx, owner, order)
	return order, nil
}

// loadCart reads a cart with its items. A non-nil owner must match the cart's
// user. tx may be nil to read outside a transaction.
func (s *service) loadCart(ctx context.Context, tx *gorm.DB, cartID, owner uuid.UUID) (*models.Cart, error) {
	repo := s.carts
	if tx != nil {
		repo = repo.WithTx(tx)
	}
	record, err := repo.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cartNotFound(cartID, owner)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if owner != uuid.Nil && record.UserID != owner {
		return nil, cartNotFound(cartID, owner)
	}
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}
	return record, nil
}

func (s *service) orderTotal(record *models.Cart) decimal.Decimal {
	return types.Round2(s.pricing.TaxPrice.Add(s.pricing.ShippingPrice).Add(record.EffectiveTotal()))
}

func (s *service) newOrder(record *models.Cart, method enums.PaymentMethod, shipping types.ShippingAddress) *models.Order {
	items := make([]models.OrderLineItem, len(record.Items))
	for i, item := range record.Items {
		items[i] = models.OrderLineItem{
			ProductID: item.ProductID,
			Color:     item.Color,
			Price:     item.Price,
			Count:     item.Count,
		}
	}
	return &models.Order{
		ID:              uuid.New(),
		UserID:          record.UserID,
		CartID:          record.ID,
		TaxPrice:        s.pricing.TaxPrice,
		ShippingPrice:   s.pricing.ShippingPrice,
		TotalPrice:      s.orderTotal(record),
		PaymentMethod:   method,
		ShippingAddress: shipping,
		Items:           items,
	}
}

// convert runs verify, order insert, debit and cart removal on tx.
func (s *service) convert(ctx context.Context, tx *gorm.DB, record *models.Cart, order *models.Order) error {
	lines := make([]inventory.Line, len(record.Items))
	for i, item := range record.Items {
		lines[i] = inventory.Line{ProductID: item.ProductID, Count: item.Count}
	}

	if _, err := s.ledger.Verify(ctx, tx, lines); err != nil {
		return err
	}
	if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
		if db.IsUniqueViolation(err, "") {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}

	debits, err := s.ledger.Debit(ctx, tx, lines)
	if err != nil {
		return err
	}
	for _, debit := range debits {
		if debit.Clamped {
			s.metrics.IncClamped()
		}
		if debit.OutOfStock {
			s.logg.Warn(s.logg.WithField(ctx, "product_id", debit.ProductID.String()), "inventory.out_of_stock")
		}
	}

	if err := s.carts.WithTx(tx).Delete(ctx, record.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart")
	}
	return nil
}

func (s *service) reject(err error) error {
	switch {
	case pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock):
		s.metrics.IncRejected("insufficient_stock")
	case pkgerrors.HasCode(err, pkgerrors.CodeNotFound):
		s.metrics.IncRejected("not_found")
	case pkgerrors.HasCode(err, pkgerrors.CodeValidation):
		s.metrics.IncRejected("invalid_cart")
	}
	if pkgerrors.As(err) == nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkout failed")
	}
	return err
}

func (s *service) afterCommit(ctx context.Context, owner uuid.UUID, order *models.Order) {
	s.metrics.IncCreated(string(order.PaymentMethod))
	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":       order.ID.String(),
		"payment_method": string(order.PaymentMethod),
	})
	s.logg.Info(ctx, "checkout.order_created")

	if s.cache != nil {
		if err := s.cache.Delete(ctx, owner); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checkout.cart_cache_invalidate_failed")
		}
	}
	s.notifyAdmin(ctx, order)
}

func (s *service) notifyAdmin(ctx context.Context, order *models.Order) {
	if s.notifier == nil || s.adminEmail == "" {
		return
	}
	buyer, err := s.users.FindByID(ctx, order.UserID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checkout.admin_email_buyer_lookup_failed")
	}

	ids := make([]uuid.UUID, len(order.Items))
	for i, item := range order.Items {
		ids[i] = item.ProductID
	}
	titles := map[uuid.UUID]string{}
	if found, err := s.products.FindByIDs(ctx, ids); err == nil {
		for id, product := range found {
			titles[id] = product.Title
		}
	} else {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checkout.admin_email_products_lookup_failed")
	}

	s.notifier.Enqueue(ctx, notifications.AdminOrderEmail(s.adminEmail, order, buyer, titles))
}
