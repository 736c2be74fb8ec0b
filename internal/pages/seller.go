package pages

import (
	"context"
	"strings"

	"marketplace/internal/models"
	"marketplace/internal/router"
	"marketplace/internal/service"
	"marketplace/internal/view"
)

func (p *Pages) sellerProducts(ctx context.Context, req *router.Request) (*view.Fragment, error) {
	user, deny := p.viewer(ctx, models.RoleSeller)
	if deny != nil {
		return deny, nil
	}
	page, err := p.Catalog.ListProducts(ctx, service.ProductFilter{
		SellerID: user.ID,
		Category: req.Query.Get("category"),
		Search:   strings.TrimSpace(req.Query.Get("q")),
		Page:     intParam(req.Query, "page", 1),
		PageSize: p.PageSize,
	})
	if err != nil {
		return nil, err
	}
	return p.render(ctx, "seller_products", "page.seller_products", map[string]any{
		"Products": page.Items,
		"Pager":    p.pager(req.Path, req.Query, page.Page, page.TotalPages),
		"Mains":    p.Catalog.Categories().MainCategories(),
		"Category": req.Query.Get("category"),
		"Search":   strings.TrimSpace(req.Query.Get("q")),
	})
}

type categoryOption struct {
	Main string
	Subs []string
}

// productForm edits the product named by ?id, or starts a new one
func (p *Pages) productForm(ctx context.Context, req *router.Request) (*view.Fragment, error) {
	user, deny := p.viewer(ctx, models.RoleSeller)
	if deny != nil {
		return deny, nil
	}

	prod := &models.Product{MinOrderQty: 1, Unit: "unit"}
	if req.Query.Get("id") != "" {
		id, err := idParam(req.Query)
		if err != nil {
			return nil, err
		}
		if prod, err = p.Catalog.GetSellerProduct(ctx, user.ID, id); err != nil {
			return nil, err
		}
	}

	h := p.Catalog.Categories()
	var options []categoryOption
	for _, main := range h.MainCategories() {
		options = append(options, categoryOption{Main: main, Subs: h.Subcategories(main)})
	}

	titleKey := "page.product_new"
	if prod.ID != 0 {
		titleKey = "page.product_edit"
	}
	return p.render(ctx, "product_form", titleKey, map[string]any{
		"Product":    prod,
		"Categories": options,
		"Sizes":      strings.Join(prod.Sizes, ", "),
	})
}

func (p *Pages) sellerOrders(ctx context.Context, req *router.Request) (*view.Fragment, error) {
	user, deny := p.viewer(ctx, models.RoleSeller)
	if deny != nil {
		return deny, nil
	}
	f := orderFilter(req, p.PageSize)
	page, err := p.Orders.ListSellerOrders(ctx, user.ID, f)
	if err != nil {
		return nil, err
	}
	return p.render(ctx, "orders", "page.orders", map[string]any{
		"Role":     models.RoleSeller,
		"Orders":   page.Items,
		"Total":    page.Total,
		"Pager":    p.pager(req.Path, req.Query, page.Page, page.TotalPages),
		"Statuses": models.OrderStatuses,
		"Status":   f.Status,
		"Search":   f.Search,
	})
}

func (p *Pages) branches(ctx context.Context, req *router.Request) (*view.Fragment, error) {
	user, deny := p.viewer(ctx, models.RoleSeller)
	if deny != nil {
		return deny, nil
	}
	list, err := p.Profiles.ListBranches(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return p.render(ctx, "branches", "page.branches", map[string]any{"Branches": list})
}
