package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eshop-backend/pkg/db/models"
	"github.com/angelmondragon/eshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eshop-backend/pkg/errors"
	"github.com/angelmondragon/eshop-backend/pkg/pagination"
)

// Actor is the authenticated caller reading orders.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// Service exposes order reads and status transitions.
type Service interface {
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, actor Actor, params pagination.Params) (*ListResult, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires the orders service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// NotFound is the error returned for a missing order.
func NotFound(id uuid.UUID) *pkgerrors.Error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "There is no order for this id: %s", id)
}

// Get returns the order. Non-staff callers only see their own orders.
func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() && order.UserID != actor.UserID {
		return nil, NotFound(id)
	}
	return order, nil
}

func (s *service) List(ctx context.Context, actor Actor, params pagination.Params) (*ListResult, error) {
	filter := ListFilter{}
	if !actor.Role.IsStaff() {
		owner := actor.UserID
		filter.UserID = &owner
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pagination cursor")
	}
	result, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return result, nil
}

func (s *service) MarkPaid(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if err := s.repo.MarkPaid(ctx, id, s.now().UTC()); err != nil {
		return nil, s.mapErr(id, err, "mark order paid")
	}
	return s.load(ctx, id)
}

func (s *service) MarkDelivered(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if err := s.repo.MarkDelivered(ctx, id, s.now().UTC()); err != nil {
		return nil, s.mapErr(id, err, "mark order delivered")
	}
	return s.load(ctx, id)
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapErr(id, err, "load order")
	}
	return order, nil
}

func (s *service) mapErr(id uuid.UUID, err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(id)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
