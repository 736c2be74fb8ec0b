package layout

import (
	"strings"

	"marketplace/internal/models"
)

// MenuEntry is one navigation link of a role's frame
type MenuEntry struct {
	Path     string
	LabelKey string
}

var menus = map[models.Role][]MenuEntry{
	models.RoleBuyer: {
		{Path: "/buyer/dashboard", LabelKey: "nav.dashboard"},
		{Path: "/buyer/catalog", LabelKey: "nav.catalog"},
		{Path: "/buyer/cart", LabelKey: "nav.cart"},
		{Path: "/buyer/orders", LabelKey: "nav.orders"},
		{Path: "/buyer/invoices", LabelKey: "nav.invoices"},
		{Path: "/buyer/sellers", LabelKey: "nav.sellers"},
		{Path: "/buyer/support", LabelKey: "nav.support"},
		{Path: "/buyer/notifications", LabelKey: "nav.notifications"},
		{Path: "/buyer/profile", LabelKey: "nav.profile"},
	},
	models.RoleSeller: {
		{Path: "/seller/dashboard", LabelKey: "nav.dashboard"},
		{Path: "/seller/products", LabelKey: "nav.products"},
		{Path: "/seller/orders", LabelKey: "nav.orders"},
		{Path: "/seller/invoices", LabelKey: "nav.invoices"},
		{Path: "/seller/branches", LabelKey: "nav.branches"},
		{Path: "/seller/support", LabelKey: "nav.support"},
		{Path: "/seller/notifications", LabelKey: "nav.notifications"},
		{Path: "/seller/profile", LabelKey: "nav.profile"},
	},
	models.RoleAdmin: {
		{Path: "/admin/dashboard", LabelKey: "nav.dashboard"},
	},
	models.RoleGuest: {
		{Path: "/", LabelKey: "nav.home"},
		{Path: "/login", LabelKey: "nav.login"},
		{Path: "/signup", LabelKey: "nav.signup"},
	},
}

// Menu returns the navigation entries for role; unknown roles get the guest frame
func Menu(role models.Role) []MenuEntry {
	if m, ok := menus[role]; ok {
		return m
	}
	return menus[models.RoleGuest]
}

// IsActive reports whether entryPath should be highlighted for current
func IsActive(entryPath, current string) bool {
	if entryPath == "/" {
		return current == "/"
	}
	return current == entryPath || strings.HasPrefix(current, entryPath+"/")
}

// HomePath is where a role lands after choosing a profile
func HomePath(role models.Role) string {
	switch role {
	case models.RoleBuyer:
		return "/buyer/dashboard"
	case models.RoleSeller:
		return "/seller/dashboard"
	case models.RoleAdmin:
		return "/admin/dashboard"
	}
	return "/"
}
