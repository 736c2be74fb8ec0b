package pages

import (
	"context"
	"strings"

	"marketplace/internal/cart"
	"marketplace/internal/models"
	"marketplace/internal/router"
	"marketplace/internal/service"
	"marketplace/internal/session"
	"marketplace/internal/view"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (p *Pages) catalog(ctx context.Context, req *router.Request) (*view.Fragment, error) {
	if _, deny := p.viewer(ctx, models.RoleBuyer); deny != nil {
		return deny, nil
	}

	q := req.Query
	main := q.Get("category")
	sub := q.Get("sub")
	filter := service.ProductFilter{
		Category: main,
		Search:   strings.TrimSpace(q.Get("q")),
		MinPrice: decimalParam(q, "min"),
		MaxPrice: decimalParam(q, "max"),
		Page:     intParam(q, "page", 1),
		PageSize: p.PageSize,
	}
	if sub != "" {
		filter.Category = sub
	}

	page, err := p.Catalog.ListProducts(ctx, filter)
	if err != nil {
		return nil, err
	}

	categories := p.Catalog.Categories()
	return p.render(ctx, "catalog", "page.catalog", map[string]any{
		"Products": page.Items,
		"Total":    page.Total,
		"Pager":    p.pager(req.Path, q, page.Page, page.TotalPages),
		"Mains":    categories.MainCategories(),
		"Subs":     categories.Subcategories(main),
		"Category": main,
		"Sub":      sub,
		"Search":   filter.Search,
		"Min":      q.Get("min"),
		"Max":      q.Get("max"),
	})
}

func (p *Pages) product(ctx context.Context, req *router.Request) (*view.Fragment, error) {
	if _, deny := p.viewer(ctx, models.RoleBuyer); deny != nil {
		return deny, nil
	}
	id, err := idParam(req.Query)
	if err != nil {
		return nil, err
	}
	prod, err := p.Catalog.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	frag, err := p.render(ctx, "product", "page.product", map[string]any{"Product": prod})
	if err != nil {
		return nil, err
	}
	frag.Title = prod.Name
	return frag, nil
}

func (p *Pages) cart(ctx context.Context, req *router.Request) (*view.Fragment, error) {
	if _, deny := p.viewer(ctx, models.RoleBuyer); deny != nil {
		return deny, nil
	}
	s, _ := session.FromContext(ctx)

	items, err := s.Cart.Load(ctx)
	if err != nil {
		// unreadable storage renders as an empty cart with a warning
		p.logger.Warn("Cart unavailable", zap.String("session_id", s.ID), zap.Error(err))
	}
	return p.render(ctx, "cart", "page.cart", map[string]any{
		"Groups":      cart.GroupBySeller(items),
		"Count":       cart.Count(items),
		"Total":       cart.Total(items),
		"Unavailable": err != nil,
	})
}

func (p *Pages) checkout(ctx context.Context, req *router.Request) (*view.Fragment, error) {
	if _, deny := p.viewer(ctx, models.RoleBuyer); deny != nil {
		return deny, nil
	}
	s, _ := session.FromContext(ctx)

	pct := intParam(req.Query, "deposit", p.DefaultDeposit)
	if !service.AllowedDeposit(p.DepositOptions, pct) {
		pct = p.DefaultDeposit
	}

	items := s.Cart.Items(ctx)
	data := map[string]any{
		"Empty":          len(items) == 0,
		"Options":        p.DepositOptions,
		"Deposit":        pct,
		"IdempotencyKey": uuid.New().String(),
	}
	if len(items) > 0 {
		quote, err := p.Orders.Quote(items, pct)
		if err != nil {
			return nil, err
		}
		data["Quote"] = quote
	}
	return p.render(ctx, "checkout", "page.checkout", data)
}

func (p *Pages) buyerOrders(ctx context.Context, req *router.Request) (*view.Fragment, error) {
	user, deny := p.viewer(ctx, models.RoleBuyer)
	if deny != nil {
		return deny, nil
	}
	f := orderFilter(req, p.PageSize)
	page, err := p.Orders.ListBuyerOrders(ctx, user.ID, f)
	if err != nil {
		return nil, err
	}
	return p.render(ctx, "orders", "page.orders", map[string]any{
		"Role":     models.RoleBuyer,
		"Orders":   page.Items,
		"Total":    page.Total,
		"Pager":    p.pager(req.Path, req.Query, page.Page, page.TotalPages),
		"Statuses": models.OrderStatuses,
		"Status":   f.Status,
		"Search":   f.Search,
	})
}

func (p *Pages) sellers(ctx context.Context, req *router.Request) (*view.Fragment, error) {
	if _, deny := p.viewer(ctx, models.RoleBuyer); deny != nil {
		return deny, nil
	}
	f := service.SellerFilter{
		Search:   strings.TrimSpace(req.Query.Get("q")),
		City:     strings.TrimSpace(req.Query.Get("city")),
		Page:     intParam(req.Query, "page", 1),
		PageSize: p.PageSize,
	}
	page, err := p.Profiles.ListSellers(ctx, f)
	if err != nil {
		return nil, err
	}
	return p.render(ctx, "sellers", "page.sellers", map[string]any{
		"Sellers": page.Items,
		"Pager":   p.pager(req.Path, req.Query, page.Page, page.TotalPages),
		"Search":  f.Search,
		"City":    f.City,
	})
}

func orderFilter(req *router.Request, size int) service.OrderFilter {
	return service.OrderFilter{
		Status:   req.Query.Get("status"),
		Search:   strings.TrimSpace(req.Query.Get("q")),
		Page:     intParam(req.Query, "page", 1),
		PageSize: size,
	}
}
