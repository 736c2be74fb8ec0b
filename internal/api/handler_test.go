package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"marketplace/internal/cart"
	"marketplace/internal/catalog"
	"marketplace/internal/i18n"
	"marketplace/internal/layout"
	"marketplace/internal/models"
	"marketplace/internal/pages"
	"marketplace/internal/router"
	"marketplace/internal/service"
	"marketplace/internal/session"
	"marketplace/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo backs the catalog, profile and support services
type memRepo struct {
	mu       sync.Mutex
	products []models.Product
	users    []models.User
	messages []models.Message
}

func (m *memRepo) ListProducts(ctx context.Context, q store.ProductQuery) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Product(nil), m.products...), nil
}

func (m *memRepo) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = int64(100 + len(m.products))
	m.products = append(m.products, *p)
	return nil
}

func (m *memRepo) UpdateProduct(ctx context.Context, p *models.Product) error  { return nil }
func (m *memRepo) DeleteProduct(ctx context.Context, sellerID, id int64) error { return nil }

func (m *memRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			cp := u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memRepo) ListUsers(ctx context.Context, role models.Role) ([]models.User, error) {
	return m.users, nil
}

func (m *memRepo) UpdateProfile(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == u.ID {
			m.users[i] = *u
		}
	}
	return nil
}

func (m *memRepo) ListBranches(ctx context.Context, sellerID int64) ([]models.Branch, error) {
	return nil, nil
}
func (m *memRepo) CreateBranch(ctx context.Context, b *models.Branch) error   { return nil }
func (m *memRepo) DeleteBranch(ctx context.Context, sellerID, id int64) error { return nil }

func (m *memRepo) ListMessages(ctx context.Context, threadID string) ([]models.Message, error) {
	return m.messages, nil
}

func (m *memRepo) CreateMessage(ctx context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *memRepo) ListNotifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	return nil, nil
}
func (m *memRepo) MarkNotificationsRead(ctx context.Context, userID int64) error { return nil }

type testServer struct {
	*httptest.Server
	repo     *memRepo
	sessions *session.Manager
	client   *http.Client
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tr, err := i18n.New()
	require.NoError(t, err)

	repo := &memRepo{
		users: []models.User{
			{ID: 1, Role: models.RoleBuyer, DisplayName: "Dana"},
			{ID: 2, Role: models.RoleSeller, DisplayName: "Omar"},
		},
		products: []models.Product{
			{ID: 10, SellerID: 2, SellerName: "Omar Steel", Name: "Rebar 12mm", MainCategory: "Building Materials",
				Subcategory: "Steel & Rebar", Price: decimal.NewFromInt(10), MinOrderQty: 1, Unit: "bar", Stock: 100},
		},
	}

	r := router.New("/market")
	catalogSvc := service.NewCatalogService(repo, catalog.Default)
	orders := service.NewOrderService(nil, nil, nil, nil, service.PricingConfig{
		TaxRate:        decimal.RequireFromString("0.10"),
		DepositOptions: []int{30, 50, 100},
	})
	profiles := service.NewProfileService(repo)
	support := service.NewSupportService(repo)

	p, err := pages.New(pages.Deps{
		Catalog:        catalogSvc,
		Orders:         orders,
		Profiles:       profiles,
		Support:        support,
		Translator:     tr,
		Router:         r,
		PageSize:       10,
		DepositOptions: []int{30, 50, 100},
		DefaultDeposit: 30,
		Currency:       "USD",
	})
	require.NoError(t, err)
	p.Register(r)

	composer, err := layout.NewComposer(r, tr)
	require.NoError(t, err)

	sessions := session.NewManager(cart.NewMemoryStorage(), r, "cart:", time.Hour)
	h := NewHandler(Deps{
		Sessions:   sessions,
		Router:     r,
		Composer:   composer,
		Pages:      p,
		Translator: tr,
		Catalog:    catalogSvc,
		Orders:     orders,
		Profiles:   profiles,
		Support:    support,
	})
	engine := gin.New()
	h.SetupRoutes(engine)

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testServer{
		Server:   srv,
		repo:     repo,
		sessions: sessions,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (ts *testServer) do(t *testing.T, method, path string, form url.Values, header map[string]string) (*http.Response, string) {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, ts.URL+path, body)
	require.NoError(t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := ts.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func (ts *testServer) signIn(t *testing.T, userID string) {
	t.Helper()
	resp, _ := ts.do(t, http.MethodPost, "/api/session/profile", url.Values{"user_id": {userID}}, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func (ts *testServer) sessionID(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	for _, c := range ts.client.Jar.Cookies(u) {
		if c.Name == session.CookieName {
			return c.Value
		}
	}
	t.Fatal("no session cookie")
	return ""
}

var jsonHeader = map[string]string{"Accept": "application/json"}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "healthy")

	resp, body = ts.do(t, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"ready"`)
}

func TestFullPageLoad(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/market/", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, "<title>Welcome · Wholesale Market</title>")
	assert.Equal(t, "Welcome", resp.Header.Get("X-Page-Title"))
	assert.Equal(t, "/", resp.Header.Get("X-Active-Path"))
	assert.NotEmpty(t, ts.sessionID(t))
}

func TestClientScript(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/static/app.js", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "javascript")

	// toasts expire on full loads and after every swap
	assert.Contains(t, body, "dismissToasts(document)")
	assert.Contains(t, body, "dismissToasts(main)")
	// back/forward report how far they moved
	assert.Contains(t, body, `headers["X-Nav-Delta"]`)
	assert.Contains(t, body, "history.pushState({ i: position }")
	// a navigation lost to another tab falls back to a full load
	assert.Contains(t, body, "res.status === 409")
}

func TestFragmentNavigation(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t, "1")

	resp, body := ts.do(t, http.MethodGet, "/market/buyer/catalog?q=rebar", nil,
		map[string]string{"X-Fragment": "1", "X-Nav": "push"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, "<html")
	assert.Contains(t, body, "Rebar 12mm")
	assert.Equal(t, "Catalog", resp.Header.Get("X-Page-Title"))
	assert.Equal(t, "/buyer/catalog", resp.Header.Get("X-Active-Path"))

	s, ok := ts.sessions.Get(ts.sessionID(t))
	require.True(t, ok)
	assert.Equal(t, "/buyer/catalog", s.Nav.Current())

	resp, _ = ts.do(t, http.MethodGet, "/market/buyer/cart", nil,
		map[string]string{"X-Fragment": "1", "X-Nav": "push"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/buyer/cart", s.Nav.Current())

	// browser back
	resp, body = ts.do(t, http.MethodGet, "/market/buyer/catalog?q=rebar", nil,
		map[string]string{"X-Fragment": "1", "X-Nav": "traverse", "X-Nav-Delta": "-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Rebar 12mm")
	assert.Equal(t, "/buyer/catalog", s.Nav.Current())

	// and forward again
	resp, _ = ts.do(t, http.MethodGet, "/market/buyer/cart", nil,
		map[string]string{"X-Fragment": "1", "X-Nav": "traverse", "X-Nav-Delta": "1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/buyer/cart", s.Nav.Current())
}

func TestPageStatusCodes(t *testing.T) {
	ts := newTestServer(t)

	// outside the base
	resp, _ := ts.do(t, http.MethodGet, "/elsewhere", nil, nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/market/", resp.Header.Get("Location"))

	// guests may not see buyer pages
	resp, body := ts.do(t, http.MethodGet, "/market/buyer/cart", nil, map[string]string{"X-Fragment": "1"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body, "/market/profile-selection")

	ts.signIn(t, "1")
	resp, body = ts.do(t, http.MethodGet, "/market/buyer/product?id=999", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "<!DOCTYPE html>")

	resp, _ = ts.do(t, http.MethodPost, "/market/buyer/cart", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSelectProfileRedirectsHome(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodPost, "/api/session/profile", url.Values{"user_id": {"2"}}, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/market/seller/dashboard", resp.Header.Get("Location"))

	s, ok := ts.sessions.Get(ts.sessionID(t))
	require.True(t, ok)
	assert.Equal(t, models.RoleSeller, s.Role())

	resp, body := ts.do(t, http.MethodPost, "/api/session/profile", url.Values{"user_id": {"42"}}, jsonHeader)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, `"error"`)
}

func TestAddToCartWithFlash(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t, "1")
	// consume the sign-in toast
	ts.do(t, http.MethodGet, "/market/", nil, nil)

	resp, _ := ts.do(t, http.MethodPost, "/api/cart/add",
		url.Values{"product_id": {"10"}, "quantity": {"2"}},
		map[string]string{"Referer": ts.URL + "/market/buyer/catalog"})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/market/buyer/catalog", resp.Header.Get("Location"))

	_, body := ts.do(t, http.MethodGet, "/market/buyer/catalog", nil, nil)
	assert.Contains(t, body, "Rebar 12mm added to your cart")
	assert.Contains(t, body, `id="cart-count">2<`)

	// the toast shows once
	_, body = ts.do(t, http.MethodGet, "/market/buyer/catalog", nil, nil)
	assert.NotContains(t, body, "added to your cart")

	resp, body = ts.do(t, http.MethodGet, "/api/cart", nil, jsonHeader)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got struct {
		Count int    `json:"count"`
		Total string `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, "20.00", got.Total)
}

func TestCartActionErrors(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPost, "/api/cart/add", url.Values{"product_id": {"10"}}, jsonHeader)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body, "Switch profile to do that")

	ts.signIn(t, "1")
	resp, _ = ts.do(t, http.MethodPost, "/api/cart/add", url.Values{"product_id": {"999"}}, jsonHeader)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/api/cart/add", url.Values{"product_id": {"10"}, "quantity": {"500"}}, jsonHeader)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/api/cart/update", url.Values{"key": {"10"}, "quantity": {"3"}}, jsonHeader)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/api/checkout", url.Values{"deposit": {"thirty"}}, jsonHeader)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// form posts get an error toast and go back
	resp, _ = ts.do(t, http.MethodPost, "/api/cart/add", url.Values{"product_id": {"999"}}, nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body = ts.do(t, http.MethodGet, "/market/", nil, nil)
	assert.Contains(t, body, "toast-error")
	assert.Contains(t, body, "We could not find that page")
}

func TestPreferences(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPost, "/api/preferences/theme", nil, jsonHeader)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"theme":"dark"`)

	resp, _ = ts.do(t, http.MethodPost, "/api/preferences/language", url.Values{"lang": {"fr"}}, nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body = ts.do(t, http.MethodGet, "/market/", nil, nil)
	assert.Contains(t, body, `<html lang="fr" dir="ltr" data-theme="dark">`)
	assert.Contains(t, body, "Bienvenue")

	resp, body = ts.do(t, http.MethodPost, "/api/preferences/language", url.Values{"lang": {"xx"}}, jsonHeader)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"lang":"en"`)
}

func TestSellerSavesProduct(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t, "2")

	resp, _ := ts.do(t, http.MethodPost, "/api/seller/products", url.Values{
		"name":          {"Steel mesh"},
		"subcategory":   {"Building Materials|Steel & Rebar"},
		"price":         {"12.50"},
		"unit":          {"sheet"},
		"min_order_qty": {"5"},
		"stock":         {"40"},
		"sizes":         {"2x1, 3x1 ,"},
	}, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/market/seller/products", resp.Header.Get("Location"))

	ts.repo.mu.Lock()
	defer ts.repo.mu.Unlock()
	require.Len(t, ts.repo.products, 2)
	p := ts.repo.products[1]
	assert.Equal(t, int64(2), p.SellerID)
	assert.Equal(t, "Steel & Rebar", p.Subcategory)
	assert.True(t, decimal.RequireFromString("12.50").Equal(p.Price))
	assert.Equal(t, []string{"2x1", "3x1"}, []string(p.Sizes))
}

func TestSellerActionsRejectBuyers(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t, "1")

	resp, _ := ts.do(t, http.MethodPost, "/api/seller/products/delete", url.Values{"id": {"10"}}, jsonHeader)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSupportMessageAndProfile(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t, "1")

	resp, _ := ts.do(t, http.MethodPost, "/api/support/messages", url.Values{"body": {"Where is my order?"}}, jsonHeader)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, ts.repo.messages, 1)

	resp, _ = ts.do(t, http.MethodPost, "/api/support/messages", url.Values{"body": {" "}}, jsonHeader)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/api/profile", url.Values{"display_name": {"Dana K"}, "city": {"Giza"}}, jsonHeader)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s, _ := ts.sessions.Get(ts.sessionID(t))
	assert.Equal(t, "Dana K", s.User().DisplayName)
}

func TestCartSocketStreamsSummaries(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t, "1")
	id := ts.sessionID(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/cart"
	header := http.Header{"Cookie": {session.CookieName + "=" + id}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	s, ok := ts.sessions.Get(id)
	require.True(t, ok)
	require.NoError(t, s.Cart.Add(context.Background(),
		cart.LineItem{ProductID: 10, UnitPrice: decimal.NewFromInt(10)}, 3))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var summary layout.CartSummary
	for summary.Count != 3 {
		require.NoError(t, conn.ReadJSON(&summary))
	}
	assert.Equal(t, "30.00", summary.Total)
	assert.True(t, summary.Visible)
}
