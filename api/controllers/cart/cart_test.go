package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/eshop-backend/api/middleware"
	cartsvc "github.com/angelmondragon/eshop-backend/internal/cart"
	"github.com/angelmondragon/eshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/eshop-backend/pkg/errors"
)

type stubCartService struct {
	record    *models.Cart
	err       error
	lastAdd   cartsvc.AddItemInput
	lastCount int
	lastItem  uuid.UUID
	coupon    string
	cleared   bool
}

func (s *stubCartService) AddItem(ctx context.Context, userID uuid.UUID, input cartsvc.AddItemInput) (*cartsvc.AddItemResult, error) {
	s.lastAdd = input
	if s.err != nil {
		return nil, s.err
	}
	return &cartsvc.AddItemResult{Cart: s.record, ProductTitle: "Lamp", Added: input.Count}, nil
}

func (s *stubCartService) UpdateItemCount(ctx context.Context, userID, itemID uuid.UUID, count int) (*models.Cart, error) {
	s.lastItem = itemID
	s.lastCount = count
	return s.record, s.err
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error) {
	s.lastItem = itemID
	return s.record, s.err
}

func (s *stubCartService) Clear(ctx context.Context, userID uuid.UUID) error {
	s.cleared = true
	return s.err
}

func (s *stubCartService) ApplyCoupon(ctx context.Context, userID uuid.UUID, couponName string) (*models.Cart, error) {
	s.coupon = couponName
	return s.record, s.err
}

func (s *stubCartService) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return s.record, s.err
}

func sampleCart(userID uuid.UUID) *models.Cart {
	return &models.Cart{
		ID:         uuid.New(),
		UserID:     userID,
		TotalPrice: decimal.NewFromInt(200),
		Items: []models.CartItem{
			{ID: uuid.New(), ProductID: uuid.New(), Color: "red", Price: decimal.NewFromInt(100), Count: 2},
		},
	}
}

func authedRequest(method, target, body string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func withItemParam(req *http.Request, itemID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("itemId", itemID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestAddItemDefaultsCountToOne(t *testing.T) {
	userID := uuid.New()
	svc := &stubCartService{record: sampleCart(userID)}
	productID := uuid.New()

	req := authedRequest(http.MethodPost, "/api/v1/cart", `{"productId":"`+productID.String()+`","color":"red"}`, userID)
	resp := httptest.NewRecorder()
	AddItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastAdd.Count != 1 || svc.lastAdd.ProductID != productID || svc.lastAdd.Color != "red" {
		t.Fatalf("unexpected add input %+v", svc.lastAdd)
	}

	var envelope struct {
		Data addItemResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Message != "1 item(s) of Lamp added successfully to your cart" {
		t.Fatalf("unexpected message %q", envelope.Data.Message)
	}
	if envelope.Data.Cart.NumOfCartItems != 1 {
		t.Fatalf("expected 1 cart line, got %d", envelope.Data.Cart.NumOfCartItems)
	}
}

func TestAddItemRejectsInvalidProductID(t *testing.T) {
	userID := uuid.New()
	svc := &stubCartService{record: sampleCart(userID)}

	req := authedRequest(http.MethodPost, "/api/v1/cart", `{"productId":"nope"}`, userID)
	resp := httptest.NewRecorder()
	AddItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAddItemMapsServiceErrors(t *testing.T) {
	userID := uuid.New()
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeInvalidQuantity, "Invalid quantity: 0. Quantity must be greater than 0")}

	req := authedRequest(http.MethodPost, "/api/v1/cart", `{"productId":"`+uuid.NewString()+`","count":0}`, userID)
	resp := httptest.NewRecorder()
	AddItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Invalid quantity: 0") {
		t.Fatalf("expected quantity message, got %s", resp.Body.String())
	}
}

func TestAddItemRequiresUser(t *testing.T) {
	svc := &stubCartService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	AddItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestUpdateItemPassesCount(t *testing.T) {
	userID := uuid.New()
	svc := &stubCartService{record: sampleCart(userID)}
	itemID := uuid.New()

	req := withItemParam(authedRequest(http.MethodPut, "/api/v1/cart/"+itemID.String(), `{"count":4}`, userID), itemID.String())
	resp := httptest.NewRecorder()
	UpdateItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastItem != itemID || svc.lastCount != 4 {
		t.Fatalf("unexpected update args item=%s count=%d", svc.lastItem, svc.lastCount)
	}
}

func TestUpdateItemRequiresCount(t *testing.T) {
	userID := uuid.New()
	svc := &stubCartService{record: sampleCart(userID)}
	itemID := uuid.New()

	req := withItemParam(authedRequest(http.MethodPut, "/api/v1/cart/"+itemID.String(), `{}`, userID), itemID.String())
	resp := httptest.NewRecorder()
	UpdateItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRemoveItemNotFound(t *testing.T) {
	userID := uuid.New()
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")}
	itemID := uuid.New()

	req := withItemParam(authedRequest(http.MethodDelete, "/api/v1/cart/"+itemID.String(), "", userID), itemID.String())
	resp := httptest.NewRecorder()
	RemoveItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestClearReturnsNoContent(t *testing.T) {
	userID := uuid.New()
	svc := &stubCartService{}

	req := authedRequest(http.MethodDelete, "/api/v1/cart", "", userID)
	resp := httptest.NewRecorder()
	Clear(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if !svc.cleared {
		t.Fatal("expected service clear to be called")
	}
}

func TestApplyCouponTrimsName(t *testing.T) {
	userID := uuid.New()
	record := sampleCart(userID)
	discounted := decimal.NewFromInt(180)
	name := "SAVE10"
	record.TotalAfterDiscount = &discounted
	record.CouponName = &name
	svc := &stubCartService{record: record}

	req := authedRequest(http.MethodPut, "/api/v1/cart/applyCoupon", `{"coupon":"  SAVE10 "}`, userID)
	resp := httptest.NewRecorder()
	ApplyCoupon(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.coupon != "SAVE10" {
		t.Fatalf("expected trimmed coupon, got %q", svc.coupon)
	}
	if !strings.Contains(resp.Body.String(), `"total_after_discount":"180"`) {
		t.Fatalf("expected discounted total in body, got %s", resp.Body.String())
	}
}

func TestApplyCouponInvalid(t *testing.T) {
	userID := uuid.New()
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeInvalidCoupon, "Coupon is invalid or has expired")}

	req := authedRequest(http.MethodPut, "/api/v1/cart/applyCoupon", `{"coupon":"OLD"}`, userID)
	resp := httptest.NewRecorder()
	ApplyCoupon(svc, nil).ServeHTTP(resp, req)

	if resp.Code == http.StatusOK {
		t.Fatalf("expected error status, got 200")
	}
	if !strings.Contains(resp.Body.String(), "Coupon is invalid or has expired") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}
