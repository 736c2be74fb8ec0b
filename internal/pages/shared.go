package pages

import (
	"context"
	"strings"

	"marketplace/internal/models"
	"marketplace/internal/router"
	"marketplace/internal/service"
	"marketplace/internal/view"
)

// Pages present in more than one role's frame. The role decides the scope of
// the data and which actions are offered.

func (p *Pages) dashboard(role models.Role) router.Handler {
	return func(ctx context.Context, req *router.Request) (*view.Fragment, error) {
		user, deny := p.viewer(ctx, role)
		if deny != nil {
			return deny, nil
		}
		stats, err := p.Dashboard.Stats(ctx, user)
		if err != nil {
			return nil, err
		}
		return p.render(ctx, "dashboard", "page.dashboard", map[string]any{
			"Role":  role,
			"User":  user,
			"Stats": stats,
		})
	}
}

func (p *Pages) orderDetail(role models.Role) router.Handler {
	return func(ctx context.Context, req *router.Request) (*view.Fragment, error) {
		user, deny := p.viewer(ctx, role)
		if deny != nil {
			return deny, nil
		}
		id, err := idParam(req.Query)
		if err != nil {
			return nil, err
		}
		detail, err := p.Orders.GetOrder(ctx, user, id)
		if err != nil {
			return nil, err
		}

		var next []string
		if role == models.RoleSeller {
			next = service.NextStatuses(detail.Order.Status)
		}
		frag, err := p.render(ctx, "order_detail", "page.order", map[string]any{
			"Role":  role,
			"Order": detail.Order,
			"Items": detail.Items,
			"Next":  next,
		})
		if err != nil {
			return nil, err
		}
		frag.Title = frag.Title + " " + detail.Order.OrderNumber
		return frag, nil
	}
}

func (p *Pages) invoices(role models.Role) router.Handler {
	return func(ctx context.Context, req *router.Request) (*view.Fragment, error) {
		user, deny := p.viewer(ctx, role)
		if deny != nil {
			return deny, nil
		}
		f := service.InvoiceFilter{
			Status:   req.Query.Get("status"),
			Kind:     req.Query.Get("kind"),
			Search:   strings.TrimSpace(req.Query.Get("q")),
			Page:     intParam(req.Query, "page", 1),
			PageSize: p.PageSize,
		}

		var page service.Page[models.Invoice]
		var err error
		if role == models.RoleSeller {
			page, err = p.Invoices.ListSellerInvoices(ctx, user.ID, f)
		} else {
			page, err = p.Invoices.ListBuyerInvoices(ctx, user.ID, f)
		}
		if err != nil {
			return nil, err
		}
		return p.render(ctx, "invoices", "page.invoices", map[string]any{
			"Role":     role,
			"Invoices": page.Items,
			"Pager":    p.pager(req.Path, req.Query, page.Page, page.TotalPages),
			"Status":   f.Status,
			"Kind":     f.Kind,
			"Search":   f.Search,
			"Statuses": []string{models.InvoiceStatusDue, models.InvoiceStatusPaid},
			"Kinds":    []string{models.InvoiceKindDeposit, models.InvoiceKindBalance},
		})
	}
}

func (p *Pages) support(role models.Role) router.Handler {
	return func(ctx context.Context, req *router.Request) (*view.Fragment, error) {
		user, deny := p.viewer(ctx, role)
		if deny != nil {
			return deny, nil
		}
		thread, err := p.Support.Thread(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		return p.render(ctx, "support", "page.support", map[string]any{
			"FAQ":      service.FAQ,
			"Messages": thread,
			"UserID":   user.ID,
		})
	}
}

func (p *Pages) notifications(role models.Role) router.Handler {
	return func(ctx context.Context, req *router.Request) (*view.Fragment, error) {
		user, deny := p.viewer(ctx, role)
		if deny != nil {
			return deny, nil
		}
		list, unread, err := p.Support.Notifications(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		return p.render(ctx, "notifications", "page.notifications", map[string]any{
			"Notifications": list,
			"Unread":        unread,
		})
	}
}

func (p *Pages) profile(role models.Role) router.Handler {
	return func(ctx context.Context, req *router.Request) (*view.Fragment, error) {
		user, deny := p.viewer(ctx, role)
		if deny != nil {
			return deny, nil
		}
		current, err := p.Profiles.GetProfile(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		return p.render(ctx, "profile", "page.profile", map[string]any{"Profile": current})
	}
}
