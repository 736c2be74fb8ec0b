package api

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"marketplace/internal/layout"
	"marketplace/internal/models"
	"marketplace/internal/router"
	"marketplace/internal/session"
	"marketplace/internal/view"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// servePage renders the page at the request path. In-app navigations send
// X-Fragment and receive only the content; everything else gets the full frame.
func (h *Handler) servePage(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	if !h.Router.Owns(c.Request.URL.Path) {
		c.Redirect(http.StatusFound, h.Router.Href("/"))
		return
	}

	s := currentSession(c)
	ctx := c.Request.Context()
	fragmentOnly := c.GetHeader("X-Fragment") == "1"
	path := h.Router.Strip(c.Request.URL.Path)

	var frag *view.Fragment
	var err error
	location := c.Request.URL.RequestURI()
	switch nav := c.GetHeader("X-Nav"); {
	case fragmentOnly && nav == "push":
		target := path
		if q := c.Request.URL.RawQuery; q != "" {
			target += "?" + q
		}
		frag, err = s.Nav.Navigate(ctx, target)
	case fragmentOnly && nav == "traverse":
		// a browser back/forward; the delta keeps server history in step
		delta, convErr := strconv.Atoi(c.GetHeader("X-Nav-Delta"))
		if convErr != nil || delta == 0 {
			frag, err = s.Nav.HandleRoute(ctx, location)
		} else {
			frag, err = s.Nav.Traverse(ctx, delta, location)
		}
	default:
		frag, err = s.Nav.HandleRoute(ctx, location)
	}

	if errors.Is(err, router.ErrSuperseded) {
		if fragmentOnly {
			// a newer navigation of this session owns the content area
			c.Status(http.StatusConflict)
			return
		}
		frag, err = h.renderDirect(ctx, path, c.Request.URL.Query())
	}

	toast := h.takeFlash(c)
	if err != nil {
		frag = h.Pages.ErrorFragment(ctx, err)
		if frag.StatusCode() != http.StatusNotFound {
			h.logger.Error("Page failed", zap.String("path", path), zap.Error(err))
			toast = &layout.Toast{Level: "error", Message: h.Pages.ErrorMessage(ctx, err)}
		}
	}

	h.writePage(c, s, path, frag, toast, fragmentOnly)
}

// renderDirect runs a page handler outside the navigator
func (h *Handler) renderDirect(ctx context.Context, path string, query url.Values) (*view.Fragment, error) {
	handler, _, err := h.Router.Resolve(path)
	if err != nil {
		return nil, err
	}
	return handler(ctx, &router.Request{Path: path, Query: query})
}

func (h *Handler) writePage(c *gin.Context, s *session.Session, path string, frag *view.Fragment, toast *layout.Toast, fragmentOnly bool) {
	c.Header("X-Page-Title", url.PathEscape(frag.Title))
	c.Header("X-Active-Path", path)
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Header("Cache-Control", "no-store")
	c.Status(frag.StatusCode())

	var err error
	if fragmentOnly {
		if toast != nil {
			_, err = c.Writer.WriteString(`<div class="toast toast-` + template.HTMLEscapeString(toast.Level) +
				`" role="status">` + template.HTMLEscapeString(toast.Message) + `</div>`)
		}
		if err == nil {
			err = h.Composer.WriteFragment(c.Writer, frag)
		}
	} else {
		shell := layout.Shell{
			Role:  s.Role(),
			Path:  path,
			Theme: layout.ParseTheme(cookie(c, layout.ThemeCookie)),
			Lang:  currentLang(c),
			Toast: toast,
		}
		if u := s.User(); u != nil {
			shell.UserName = u.DisplayName
		}
		if shell.Role == models.RoleBuyer {
			summary := s.Widget.Summary()
			shell.Cart = &summary
		}
		err = h.Composer.Compose(c.Writer, shell, frag)
	}
	if err != nil {
		h.logger.Error("Failed to write page", zap.String("path", path), zap.Error(err))
	}
}

func cookie(c *gin.Context, name string) string {
	v, _ := c.Cookie(name)
	return v
}
