package pages

import (
	"context"

	"marketplace/internal/layout"
	"marketplace/internal/models"
	"marketplace/internal/router"
	"marketplace/internal/session"
	"marketplace/internal/view"
)

type profileGroup struct {
	Role     models.Role
	Profiles []models.User
}

func (p *Pages) landing(ctx context.Context, req *router.Request) (*view.Fragment, error) {
	data := map[string]any{
		"Categories": p.Catalog.Categories().MainCategories(),
		"Home":       "",
	}
	if s, ok := session.FromContext(ctx); ok && s.User() != nil {
		data["Home"] = layout.HomePath(s.Role())
	}
	return p.render(ctx, "landing", "page.landing", data)
}

func (p *Pages) login(ctx context.Context, req *router.Request) (*view.Fragment, error) {
	return p.render(ctx, "login", "page.login", nil)
}

func (p *Pages) signup(ctx context.Context, req *router.Request) (*view.Fragment, error) {
	return p.render(ctx, "signup", "page.signup", nil)
}

// profileSelection is the demo identity picker: every seeded profile grouped by role
func (p *Pages) profileSelection(ctx context.Context, req *router.Request) (*view.Fragment, error) {
	users, err := p.Profiles.Profiles(ctx)
	if err != nil {
		return nil, err
	}

	groups := []profileGroup{{Role: models.RoleBuyer}, {Role: models.RoleSeller}, {Role: models.RoleAdmin}}
	for _, u := range users {
		for i := range groups {
			if groups[i].Role == u.Role {
				groups[i].Profiles = append(groups[i].Profiles, u)
			}
		}
	}

	var current int64
	if s, ok := session.FromContext(ctx); ok && s.User() != nil {
		current = s.User().ID
	}
	return p.render(ctx, "profile_selection", "page.profile_selection", map[string]any{
		"Groups":  groups,
		"Current": current,
	})
}
