// Package layout composes page fragments into the full application shell.
package layout

import (
	"fmt"
	"html/template"
	"io"

	"marketplace/internal/i18n"
	"marketplace/internal/models"
	"marketplace/internal/router"
	"marketplace/internal/view"
)

// Toast is a transient message shown once above the content
type Toast struct {
	Level   string // success, info, warning, error
	Message string
}

// Shell is the per-request state the frame depends on
type Shell struct {
	Role     models.Role
	UserName string
	Path     string
	Theme    Theme
	Lang     string
	Cart     *CartSummary
	Toast    *Toast
}

type menuLink struct {
	Href   string
	Path   string
	Label  string
	Active bool
}

type languageLink struct {
	Code     string
	Name     string
	Selected bool
}

type shellData struct {
	Title      string
	AppName    string
	Lang       string
	Dir        string
	Theme      Theme
	ThemeLabel string
	Role       models.Role
	RoleLabel  string
	UserName   string
	Menu       []menuLink
	Languages  []languageLink
	Content    template.HTML
	Cart       *CartSummary
	CartHref   string
	CartLabel  string
	Toast      *Toast
	Base       string
	SwitchHref string
	SwitchText string
	WSPath     string
}

// Composer renders the application frame around page fragments
type Composer struct {
	router *router.Router
	tr     *i18n.Translator
	tmpl   *template.Template
}

// NewComposer parses the shell template
func NewComposer(r *router.Router, tr *i18n.Translator) (*Composer, error) {
	tmpl, err := template.New("shell").Parse(shellTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse shell template: %w", err)
	}
	return &Composer{router: r, tr: tr, tmpl: tmpl}, nil
}

// Compose writes a full page: frame, controls, buyer cart widget and the fragment
func (c *Composer) Compose(w io.Writer, shell Shell, frag *view.Fragment) error {
	lang := c.tr.Normalize(shell.Lang)

	data := shellData{
		AppName:    c.tr.T(lang, "app.name"),
		Lang:       lang,
		Dir:        "ltr",
		Theme:      shell.Theme,
		ThemeLabel: c.tr.T(lang, "theme."+string(shell.Theme.Toggle())),
		Role:       shell.Role,
		RoleLabel:  c.tr.T(lang, "role."+string(roleOrGuest(shell.Role))),
		UserName:   shell.UserName,
		Menu:       c.menu(lang, shell.Role, shell.Path),
		Toast:      shell.Toast,
		Base:       c.router.Base(),
		SwitchHref: c.router.Href("/profile-selection"),
		SwitchText: c.tr.T(lang, "nav.switch_profile"),
		WSPath:     "/ws/cart",
	}
	if c.tr.IsRTL(lang) {
		data.Dir = "rtl"
	}
	if frag != nil {
		data.Title = frag.Title
		data.Content = frag.Body
	}
	if data.Title == "" {
		data.Title = data.AppName
	} else {
		data.Title = data.Title + " · " + data.AppName
	}

	for _, l := range c.tr.Languages() {
		data.Languages = append(data.Languages, languageLink{Code: l.Code, Name: l.Name, Selected: l.Code == lang})
	}

	if shell.Role == models.RoleBuyer && shell.Cart != nil {
		data.Cart = shell.Cart
		data.CartHref = c.router.Href("/buyer/cart")
		data.CartLabel = c.tr.T(lang, "widget.cart")
	}

	return c.tmpl.Execute(w, data)
}

// WriteFragment writes only the fragment body, for in-place content swaps
func (c *Composer) WriteFragment(w io.Writer, frag *view.Fragment) error {
	if frag == nil {
		return nil
	}
	_, err := io.WriteString(w, string(frag.Body))
	return err
}

func (c *Composer) menu(lang string, role models.Role, current string) []menuLink {
	entries := Menu(role)
	links := make([]menuLink, 0, len(entries))
	for _, e := range entries {
		links = append(links, menuLink{
			Href:   c.router.Href(e.Path),
			Path:   e.Path,
			Label:  c.tr.T(lang, e.LabelKey),
			Active: IsActive(e.Path, current),
		})
	}
	return links
}

func roleOrGuest(r models.Role) models.Role {
	if r.Valid() {
		return r
	}
	return models.RoleGuest
}
