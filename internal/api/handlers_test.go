package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/agpatowary/mind-mortal-clone-sub001/internal/app"
	"github.com/agpatowary/mind-mortal-clone-sub001/internal/domain"
	"github.com/agpatowary/mind-mortal-clone-sub001/internal/store"
)

type providerStub struct {
	prices     []domain.PriceInfo
	sessionURL string
	portalURL  string
}

func (p *providerStub) FindOrCreateCustomer(ctx context.Context, email, userID string) (string, error) {
	return "cus_123", nil
}

func (p *providerStub) ListActivePrices(ctx context.Context) ([]domain.PriceInfo, error) {
	return p.prices, nil
}

func (p *providerStub) GetPrice(ctx context.Context, priceID string) (domain.PriceInfo, error) {
	for _, info := range p.prices {
		if info.ID == priceID {
			return info, nil
		}
	}
	return domain.PriceInfo{ID: priceID}, nil
}

func (p *providerStub) CreateCheckoutSession(ctx context.Context, params domain.CheckoutParams) (string, error) {
	return p.sessionURL, nil
}

func (p *providerStub) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	return p.portalURL, nil
}

type billingRepoStub struct {
	sub *domain.Subscription
}

func (r *billingRepoStub) GetSubscriptionByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	if r.sub == nil {
		return nil, store.ErrSubscriptionNotFound
	}
	return r.sub, nil
}

func (r *billingRepoStub) UpsertSubscription(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	return sub, nil
}

type likeRepoStub struct {
	exists bool
	count  int64
}

func (r *likeRepoStub) LikeExists(ctx context.Context, postID string, postType domain.PostType, userID string) (bool, error) {
	return r.exists, nil
}

func (r *likeRepoStub) InsertLike(ctx context.Context, postID string, postType domain.PostType, userID string) error {
	r.exists = true
	return nil
}

func (r *likeRepoStub) DeleteLike(ctx context.Context, postID string, postType domain.PostType, userID string) error {
	r.exists = false
	return nil
}

func (r *likeRepoStub) CountLikes(ctx context.Context, postID string, postType domain.PostType) (int64, error) {
	return r.count, nil
}

func newTestHandler(provider app.PaymentProvider, billingRepo app.BillingRepository, likeRepo app.LikeRepository) *Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	billing := app.NewBillingService(billingRepo, provider, logger)
	likes := app.NewLikeService(likeRepo, nil, 0, logger)
	return NewHandler(billing, likes, nil, nil, "https://app.example", logger)
}

func authedRequest(method, target, body string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := context.WithValue(r.Context(), userIDContextKey, "user-1")
	ctx = context.WithValue(ctx, userEmailContextKey, "user@example.com")
	return r.WithContext(ctx)
}

func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestHandleCreateCheckoutSession(t *testing.T) {
	h := newTestHandler(&providerStub{
		prices: []domain.PriceInfo{
			{ID: "price_month", UnitAmount: 399, Interval: domain.IntervalMonthly},
		},
		sessionURL: "https://checkout.example/session",
	}, &billingRepoStub{}, &likeRepoStub{})

	req := authedRequest(http.MethodPost, "/api/billing/checkout-session", `{"plan":"Monthly"}`)
	rec := httptest.NewRecorder()
	h.handleCreateCheckoutSession(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["url"] != "https://checkout.example/session" {
		t.Fatalf("unexpected url: %s", resp["url"])
	}
}

func TestHandleCreateCheckoutSession_UnknownPlan(t *testing.T) {
	h := newTestHandler(&providerStub{}, &billingRepoStub{}, &likeRepoStub{})

	req := authedRequest(http.MethodPost, "/api/billing/checkout-session", `{"plan":"Quarterly"}`)
	rec := httptest.NewRecorder()
	h.handleCreateCheckoutSession(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] != "No matching price found for plan: Quarterly" {
		t.Fatalf("unexpected error text: %q", resp["error"])
	}
}

func TestHandleCreateCheckoutSession_Unauthenticated(t *testing.T) {
	h := newTestHandler(&providerStub{}, &billingRepoStub{}, &likeRepoStub{})

	req := httptest.NewRequest(http.MethodPost, "/api/billing/checkout-session", strings.NewReader(`{"plan":"Monthly"}`))
	rec := httptest.NewRecorder()
	h.handleCreateCheckoutSession(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleGetStatus(t *testing.T) {
	h := newTestHandler(&providerStub{}, &billingRepoStub{}, &likeRepoStub{})

	req := authedRequest(http.MethodGet, "/api/billing/status", "")
	rec := httptest.NewRecorder()
	h.handleGetStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var status domain.EntitlementStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status.Subscribed {
		t.Fatal("expected unsubscribed state for a user without a subscription row")
	}
	if status.SubscriptionTier != nil {
		t.Fatalf("expected null tier, got %v", *status.SubscriptionTier)
	}
}

func TestHandleToggleLike(t *testing.T) {
	likeRepo := &likeRepoStub{count: 4}
	h := newTestHandler(&providerStub{}, &billingRepoStub{}, likeRepo)

	req := authedRequest(http.MethodPost, "/api/posts/idea_vault/post-1/like", `{"liked":false}`)
	req = withURLParams(req, map[string]string{"postType": "idea_vault", "postID": "post-1"})
	rec := httptest.NewRecorder()
	h.handleToggleLike(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Liked bool  `json:"liked"`
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Liked {
		t.Fatal("expected liked state after toggle")
	}
	if resp.Count != 4 {
		t.Fatalf("expected count 4, got %d", resp.Count)
	}
}

func TestHandleToggleLike_InvalidPostType(t *testing.T) {
	h := newTestHandler(&providerStub{}, &billingRepoStub{}, &likeRepoStub{})

	req := authedRequest(http.MethodPost, "/api/posts/blog/post-1/like", `{"liked":false}`)
	req = withURLParams(req, map[string]string{"postType": "blog", "postID": "post-1"})
	rec := httptest.NewRecorder()
	h.handleToggleLike(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleGetLikes(t *testing.T) {
	h := newTestHandler(&providerStub{}, &billingRepoStub{}, &likeRepoStub{exists: true, count: 2})

	req := authedRequest(http.MethodGet, "/api/posts/legacy/post-1/likes", "")
	req = withURLParams(req, map[string]string{"postType": "legacy", "postID": "post-1"})
	rec := httptest.NewRecorder()
	h.handleGetLikes(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var state domain.LikeState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !state.Liked || state.Count != 2 {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestRouterPreflight(t *testing.T) {
	h := newTestHandler(&providerStub{}, &billingRepoStub{}, &likeRepoStub{})
	router := NewRouter(h, AuthConfig{})

	req := httptest.NewRequest(http.MethodOptions, "/api/billing/checkout-session", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "authorization, content-type, x-client-info, apikey")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 preflight response, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("unexpected allow-origin: %q", got)
	}
	allowed := strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers"))
	for _, header := range []string{"authorization", "content-type", "x-client-info", "apikey"} {
		if !strings.Contains(allowed, header) {
			t.Fatalf("expected %q in allowed headers, got %q", header, allowed)
		}
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "POST" {
		t.Fatalf("unexpected allow-methods: %q", got)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{name: "valid", header: "Bearer abc.def.ghi", want: "abc.def.ghi", ok: true},
		{name: "missing scheme", header: "abc.def.ghi"},
		{name: "empty token", header: "Bearer "},
		{name: "wrong scheme", header: "Basic abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := bearerToken(tt.header)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Fatalf("token = %q, want %q", got, tt.want)
			}
		})
	}
}
