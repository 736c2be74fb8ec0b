// Package pages renders every page of the marketplace as a fragment for the
// layout composer.
package pages

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"marketplace/internal/cart"
	"marketplace/internal/i18n"
	"marketplace/internal/models"
	"marketplace/internal/router"
	"marketplace/internal/service"
	"marketplace/internal/session"
	"marketplace/internal/util"
	"marketplace/internal/view"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// Deps are the services and settings the pages read from
type Deps struct {
	Catalog    *service.CatalogService
	Orders     *service.OrderService
	Invoices   *service.InvoiceService
	Profiles   *service.ProfileService
	Support    *service.SupportService
	Dashboard  *service.DashboardService
	Translator *i18n.Translator
	Router     *router.Router

	PageSize       int
	DepositOptions []int
	DefaultDeposit int
	Currency       string
}

// Pages holds the parsed templates, one set per language
type Pages struct {
	Deps
	sets   map[string]*template.Template
	logger *zap.Logger
}

// New parses the embedded templates
func New(d Deps) (*Pages, error) {
	if d.PageSize <= 0 {
		d.PageSize = 10
	}
	p := &Pages{Deps: d, sets: make(map[string]*template.Template), logger: util.Named("pages")}

	base, err := template.New("pages").Funcs(p.funcs(i18n.Fallback)).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}
	for _, l := range d.Translator.Languages() {
		set, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone templates for %s: %w", l.Code, err)
		}
		p.sets[l.Code] = set.Funcs(p.funcs(l.Code))
	}
	return p, nil
}

func (p *Pages) funcs(lang string) template.FuncMap {
	return template.FuncMap{
		"t": func(key string, args ...any) string {
			return p.Translator.T(lang, key, args...)
		},
		"href": p.Router.Href,
		"money": func(d decimal.Decimal) string {
			return d.StringFixed(2) + " " + p.Currency
		},
		"date": func(t time.Time) string {
			return t.Format("2006-01-02")
		},
		"md": view.Markdown,
		"status": func(s string) string {
			return p.Translator.T(lang, "status."+s)
		},
		"note": func(key, body string) string {
			var args []any
			if body != "" {
				for _, a := range strings.Split(body, "|") {
					args = append(args, a)
				}
			}
			return p.Translator.T(lang, key, args...)
		},
		"join": strings.Join,
	}
}

// Register adds every page to r
func (p *Pages) Register(r *router.Router) {
	r.Register("/", p.landing)
	r.Register("/login", p.login)
	r.Register("/signup", p.signup)
	r.Register("/profile-selection", p.profileSelection)
	r.Register(router.Wildcard, p.landing)

	r.Register("/buyer/dashboard", p.dashboard(models.RoleBuyer))
	r.Register("/buyer/catalog", p.catalog)
	r.Register("/buyer/product", p.product)
	r.Register("/buyer/cart", p.cart)
	r.Register("/buyer/checkout", p.checkout)
	r.Register("/buyer/orders", p.buyerOrders)
	r.Register("/buyer/order", p.orderDetail(models.RoleBuyer))
	r.Register("/buyer/invoices", p.invoices(models.RoleBuyer))
	r.Register("/buyer/sellers", p.sellers)
	r.Register("/buyer/support", p.support(models.RoleBuyer))
	r.Register("/buyer/notifications", p.notifications(models.RoleBuyer))
	r.Register("/buyer/profile", p.profile(models.RoleBuyer))

	r.Register("/seller/dashboard", p.dashboard(models.RoleSeller))
	r.Register("/seller/products", p.sellerProducts)
	r.Register("/seller/product-form", p.productForm)
	r.Register("/seller/orders", p.sellerOrders)
	r.Register("/seller/order", p.orderDetail(models.RoleSeller))
	r.Register("/seller/invoices", p.invoices(models.RoleSeller))
	r.Register("/seller/branches", p.branches)
	r.Register("/seller/support", p.support(models.RoleSeller))
	r.Register("/seller/notifications", p.notifications(models.RoleSeller))
	r.Register("/seller/profile", p.profile(models.RoleSeller))

	r.Register("/admin/dashboard", p.dashboard(models.RoleAdmin))
}

// render executes a named template in the request language
func (p *Pages) render(ctx context.Context, name, titleKey string, data any) (*view.Fragment, error) {
	lang := i18n.FromContext(ctx)
	set, ok := p.sets[lang]
	if !ok {
		set = p.sets[i18n.Fallback]
	}

	var buf bytes.Buffer
	if err := set.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return &view.Fragment{
		Title: p.Translator.T(lang, titleKey),
		Body:  template.HTML(buf.String()),
	}, nil
}

// viewer returns the session user when it has role. Otherwise it returns a
// fragment asking the visitor to pick a suitable profile.
func (p *Pages) viewer(ctx context.Context, role models.Role) (*models.User, *view.Fragment) {
	s, ok := session.FromContext(ctx)
	if ok {
		if u := s.User(); u != nil && u.Role == role {
			return u, nil
		}
	}
	frag, err := p.render(ctx, "forbidden", "page.forbidden", map[string]any{"Role": role})
	if err != nil {
		return nil, p.ErrorFragment(ctx, err)
	}
	frag.Status = http.StatusForbidden
	return nil, frag
}

// ErrorFragment is the inline placeholder shown when a page cannot be produced
func (p *Pages) ErrorFragment(ctx context.Context, err error) *view.Fragment {
	lang := i18n.FromContext(ctx)
	key, status := "error.generic", http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, router.ErrNotFound):
		key, status = "error.not_found", http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		key, status = "error.timeout", http.StatusGatewayTimeout
	}

	body := `<div class="error-placeholder" role="alert"><h2>` +
		template.HTMLEscapeString(p.Translator.T(lang, key)) +
		`</h2><p><a href="` + template.HTMLEscapeString(p.Router.Href("/")) + `" data-nav>` +
		template.HTMLEscapeString(p.Translator.T(lang, "error.back_home")) + `</a></p></div>`

	return &view.Fragment{
		Title:  p.Translator.T(lang, key),
		Body:   template.HTML(body),
		Status: status,
	}
}

// ErrorMessage is the toast text for an error
func (p *Pages) ErrorMessage(ctx context.Context, err error) string {
	return p.Translator.T(i18n.FromContext(ctx), MessageKey(err))
}

// MessageKey maps domain errors to translation keys for toasts
func MessageKey(err error) string {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, router.ErrNotFound):
		return "error.not_found"
	case errors.Is(err, service.ErrEmptyCart):
		return "error.empty_cart"
	case errors.Is(err, service.ErrInvalidDeposit):
		return "error.invalid_deposit"
	case errors.Is(err, service.ErrOutOfStock):
		return "error.out_of_stock"
	case errors.Is(err, service.ErrCheckoutInProgress):
		return "error.checkout_in_progress"
	case errors.Is(err, service.ErrInvalidTransition):
		return "error.invalid_transition"
	case errors.Is(err, service.ErrInvalidProduct):
		return "error.invalid_product"
	case errors.Is(err, service.ErrInvalidSize):
		return "error.invalid_size"
	case errors.Is(err, service.ErrInvalidProfile), errors.Is(err, service.ErrInvalidBranch):
		return "error.invalid_form"
	case errors.Is(err, service.ErrInvalidMessage):
		return "error.invalid_message"
	case errors.Is(err, service.ErrNotBalanceInvoice):
		return "error.not_balance_invoice"
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrInvalidItem):
		return "error.invalid_quantity"
	case errors.Is(err, cart.ErrItemNotFound):
		return "error.not_found"
	case errors.Is(err, cart.ErrPersist):
		return "error.cart_unavailable"
	}
	return "error.generic"
}

// pager links the previous and next pages of a list
type pager struct {
	Page       int
	TotalPages int
	PrevHref   string
	NextHref   string
}

func (p *Pages) pager(path string, q url.Values, page, total int) pager {
	link := func(n int) string {
		v := url.Values{}
		for k, vals := range q {
			v[k] = vals
		}
		v.Set("page", strconv.Itoa(n))
		return p.Router.Href(path) + "?" + v.Encode()
	}
	pg := pager{Page: page, TotalPages: total}
	if page > 1 {
		pg.PrevHref = link(page - 1)
	}
	if page < total {
		pg.NextHref = link(page + 1)
	}
	return pg
}

func intParam(q url.Values, name string, def int) int {
	n, err := strconv.Atoi(q.Get(name))
	if err != nil {
		return def
	}
	return n
}

func idParam(q url.Values) (int64, error) {
	id, err := strconv.ParseInt(q.Get("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id %q", service.ErrNotFound, q.Get("id"))
	}
	return id, nil
}

func decimalParam(q url.Values, name string) decimal.NullDecimal {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
