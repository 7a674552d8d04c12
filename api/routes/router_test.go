package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/eshop-backend/internal/cart"
	"github.com/angelmondragon/eshop-backend/internal/checkout"
	"github.com/angelmondragon/eshop-backend/internal/orders"
	pkgAuth "github.com/angelmondragon/eshop-backend/pkg/auth"
	"github.com/angelmondragon/eshop-backend/pkg/config"
	"github.com/angelmondragon/eshop-backend/pkg/db/models"
	"github.com/angelmondragon/eshop-backend/pkg/enums"
	"github.com/angelmondragon/eshop-backend/pkg/logger"
	"github.com/angelmondragon/eshop-backend/pkg/metrics"
	"github.com/angelmondragon/eshop-backend/pkg/pagination"
	pkgredis "github.com/angelmondragon/eshop-backend/pkg/redis"
	pkgstripe "github.com/angelmondragon/eshop-backend/pkg/stripe"
	"github.com/angelmondragon/eshop-backend/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCartService struct {
	adds int
}

func (s *stubCartService) AddItem(ctx context.Context, userID uuid.UUID, input cart.AddItemInput) (*cart.AddItemResult, error) {
	s.adds++
	return &cart.AddItemResult{Cart: &models.Cart{ID: uuid.New(), UserID: userID}, ProductTitle: "Lamp", Added: input.Count}, nil
}

func (s *stubCartService) UpdateItemCount(ctx context.Context, userID, itemID uuid.UUID, count int) (*models.Cart, error) {
	return &models.Cart{ID: uuid.New(), UserID: userID}, nil
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error) {
	return &models.Cart{ID: uuid.New(), UserID: userID}, nil
}

func (s *stubCartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func (s *stubCartService) ApplyCoupon(ctx context.Context, userID uuid.UUID, couponName string) (*models.Cart, error) {
	return &models.Cart{ID: uuid.New(), UserID: userID}, nil
}

func (s *stubCartService) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return &models.Cart{ID: uuid.New(), UserID: userID}, nil
}

type stubCheckoutService struct {
	lastCartID uuid.UUID
}

func (s *stubCheckoutService) PlaceCashOrder(ctx context.Context, userID, cartID uuid.UUID, shipping types.ShippingAddress) (*models.Order, error) {
	s.lastCartID = cartID
	return &models.Order{ID: uuid.New(), UserID: userID, CartID: cartID, PaymentMethod: enums.PaymentMethodCash}, nil
}

func (s *stubCheckoutService) CreateSession(ctx context.Context, userID, cartID uuid.UUID, shipping types.ShippingAddress) (*pkgstripe.CheckoutSession, error) {
	s.lastCartID = cartID
	return &pkgstripe.CheckoutSession{ID: "cs_test", ClientReferenceID: cartID.String()}, nil
}

func (s *stubCheckoutService) CompleteCardCheckout(ctx context.Context, payment checkout.CardPayment) (*models.Order, error) {
	return &models.Order{ID: uuid.New()}, nil
}

type stubOrdersService struct {
	lastGet uuid.UUID
}

func (s *stubOrdersService) Get(ctx context.Context, actor orders.Actor, id uuid.UUID) (*models.Order, error) {
	s.lastGet = id
	return &models.Order{ID: id, UserID: actor.UserID}, nil
}

func (s *stubOrdersService) List(ctx context.Context, actor orders.Actor, params pagination.Params) (*orders.ListResult, error) {
	return &orders.ListResult{}, nil
}

func (s *stubOrdersService) MarkPaid(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: id, IsPaid: true}, nil
}

func (s *stubOrdersService) MarkDelivered(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: id, IsDelivered: true}, nil
}

type testRouter struct {
	handler  http.Handler
	cart     *stubCartService
	checkout *stubCheckoutService
	orders   *stubOrdersService
}

func newTestRouter(t *testing.T, cfg *config.Config) *testRouter {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := pkgredis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = redisClient.Close() })

	registry := prometheus.NewRegistry()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	tr := &testRouter{
		cart:     &stubCartService{},
		checkout: &stubCheckoutService{},
		orders:   &stubOrdersService{},
	}
	tr.handler = NewRouter(
		cfg,
		logg,
		stubPinger{},
		stubPinger{},
		redisClient,
		nil,
		registry,
		metrics.NewHTTPMetrics(registry),
		tr.cart,
		tr.checkout,
		tr.orders,
		nil,
		nil,
		nil,
	)
	return tr
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", CORSOrigins: []string{"*"}},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "eshop", ExpirationMinutes: 60},
	}
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	return buildTokenWithUserID(t, cfg, role, uuid.New())
}

func buildTokenWithUserID(t *testing.T, cfg *config.Config, role enums.UserRole, userID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Email:  "user@example.com",
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router := newTestRouter(t, testConfig()).handler

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		resp := serve(router, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestCartRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(t, testConfig()).handler
	resp := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestCartRequiresUserRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg).handler

	admin := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	if resp := serve(router, admin); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin got %d", resp.Code)
	}

	user := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	user.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleUser))
	if resp := serve(router, user); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for user got %d", resp.Code)
	}
}

func TestAddToCartReplaysIdempotentRequest(t *testing.T) {
	cfg := testConfig()
	tr := newTestRouter(t, cfg)
	token := buildToken(t, cfg, enums.UserRoleUser)
	body := `{"productId":"` + uuid.NewString() + `","count":2}`

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "add-1")
		resp := serve(tr.handler, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d (%s)", i, resp.Code, resp.Body.String())
		}
	}
	if tr.cart.adds != 1 {
		t.Fatalf("expected a single add, got %d", tr.cart.adds)
	}
}

func TestOrderStatusRoutesRequireStaff(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg).handler
	orderID := uuid.NewString()

	for _, path := range []string{"/api/v1/orders/" + orderID + "/pay", "/api/v1/orders/" + orderID + "/deliver"} {
		user := httptest.NewRequest(http.MethodPut, path, nil)
		user.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleUser))
		if resp := serve(router, user); resp.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for user on %s got %d", path, resp.Code)
		}

		for _, role := range []enums.UserRole{enums.UserRoleAdmin, enums.UserRoleManager} {
			staff := httptest.NewRequest(http.MethodPut, path, nil)
			staff.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, role))
			if resp := serve(router, staff); resp.Code != http.StatusOK {
				t.Fatalf("expected 200 for %s on %s got %d", role, path, resp.Code)
			}
		}
	}
}

func TestOrderRoutesShareIDPosition(t *testing.T) {
	cfg := testConfig()
	tr := newTestRouter(t, cfg)
	token := buildToken(t, cfg, enums.UserRoleUser)
	cartID := uuid.New()

	create := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+cartID.String(), nil)
	create.Header.Set("Authorization", "Bearer "+token)
	if resp := serve(tr.handler, create); resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for cash order got %d (%s)", resp.Code, resp.Body.String())
	}
	if tr.checkout.lastCartID != cartID {
		t.Fatalf("expected cart %s, got %s", cartID, tr.checkout.lastCartID)
	}

	orderID := uuid.New()
	detail := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil)
	detail.Header.Set("Authorization", "Bearer "+token)
	if resp := serve(tr.handler, detail); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for order detail got %d", resp.Code)
	}
	if tr.orders.lastGet != orderID {
		t.Fatalf("expected detail for %s, got %s", orderID, tr.orders.lastGet)
	}

	session := httptest.NewRequest(http.MethodGet, "/api/v1/orders/checkout-session/"+cartID.String(), nil)
	session.Header.Set("Authorization", "Bearer "+token)
	if resp := serve(tr.handler, session); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for checkout session got %d", resp.Code)
	}
}

func TestWebhookBypassesAuth(t *testing.T) {
	router := newTestRouter(t, testConfig()).handler
	resp := serve(router, httptest.NewRequest(http.MethodPost, "/webhook-checkout", strings.NewReader(`{}`)))
	if resp.Code == http.StatusUnauthorized {
		t.Fatalf("webhook must not require a bearer token")
	}
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 with stripe unconfigured got %d", resp.Code)
	}
}
