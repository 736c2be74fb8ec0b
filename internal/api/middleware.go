package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"marketplace/internal/i18n"
	"marketplace/internal/layout"
	"marketplace/internal/models"
	"marketplace/internal/pages"
	"marketplace/internal/service"
	"marketplace/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	langCookie  = "lang"
	flashCookie = "flash"

	sessionKey = "session"
	langKey    = "lang"
)

var errForbidden = errors.New("profile may not perform this action")

// sessionMiddleware opens the browser's session and stores it, with the
// request language, in the request context
func (h *Handler) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(session.CookieName)
		s, _ := h.Sessions.Open(c.Request.Context(), id)
		if s.ID != id {
			c.SetCookie(session.CookieName, s.ID, int(h.SessionTTL.Seconds()), "/", "", h.Secure, true)
		}

		lang := h.language(c)
		ctx := session.WithSession(c.Request.Context(), s)
		ctx = i18n.WithLanguage(ctx, lang)
		c.Request = c.Request.WithContext(ctx)

		c.Set(sessionKey, s)
		c.Set(langKey, lang)
		c.Next()
	}
}

// language prefers the stored choice over Accept-Language
func (h *Handler) language(c *gin.Context) string {
	if v, err := c.Cookie(langCookie); err == nil && v != "" {
		return h.Translator.Normalize(v)
	}
	return h.Translator.Negotiate(c.GetHeader("Accept-Language"))
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

func currentLang(c *gin.Context) string {
	return c.GetString(langKey)
}

// requireRole rejects actions from sessions whose profile lacks role
func (h *Handler) requireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentSession(c).Role() != role {
			h.fail(c, errForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// requireUser rejects actions from guests
func (h *Handler) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentSession(c).User() == nil {
			h.fail(c, errForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// done answers a successful action: JSON clients get the message, browsers
// a flash toast and a redirect to next (or back where they came from)
func (h *Handler) done(c *gin.Context, next string, key string, args ...any) {
	msg := h.Translator.T(currentLang(c), key, args...)
	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"message": msg})
		return
	}
	h.setFlash(c, "success", msg)
	h.redirect(c, next)
}

// fail answers a rejected action the same way, with an error toast
func (h *Handler) fail(c *gin.Context, err error) {
	key := pages.MessageKey(err)
	if errors.Is(err, errForbidden) {
		key = "error.forbidden"
	}
	msg := h.Translator.T(currentLang(c), key)
	status := statusFor(err)

	if status >= http.StatusInternalServerError {
		h.logger.Error("Action failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	} else {
		h.logger.Debug("Action rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}

	if wantsJSON(c) {
		c.JSON(status, gin.H{
			"error":   msg,
			"details": err.Error(),
		})
		return
	}
	h.setFlash(c, "error", msg)
	h.redirect(c, "")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrCheckoutInProgress), errors.Is(err, service.ErrOutOfStock),
		errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	case pages.MessageKey(err) != "error.generic":
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// redirect sends the browser to next, or back to the referring page when it
// is one of ours, or home
func (h *Handler) redirect(c *gin.Context, next string) {
	if next == "" {
		next = h.Router.Href("/")
		if ref, err := url.Parse(c.GetHeader("Referer")); err == nil && ref.Path != "" && h.Router.Owns(ref.Path) {
			next = ref.RequestURI()
		}
	}
	c.Redirect(http.StatusSeeOther, next)
}

func (h *Handler) setFlash(c *gin.Context, level, msg string) {
	c.SetCookie(flashCookie, level+"|"+msg, 60, "/", "", h.Secure, true)
}

// takeFlash returns and clears the pending toast
func (h *Handler) takeFlash(c *gin.Context) *layout.Toast {
	v, err := c.Cookie(flashCookie)
	if err != nil || v == "" {
		return nil
	}
	c.SetCookie(flashCookie, "", -1, "/", "", h.Secure, true)

	level, msg, ok := strings.Cut(v, "|")
	if !ok {
		return nil
	}
	return &layout.Toast{Level: level, Message: msg}
}
