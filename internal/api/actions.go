package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"marketplace/internal/cart"
	"marketplace/internal/layout"
	"marketplace/internal/models"
	"marketplace/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func formInt64(c *gin.Context, name string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(c.PostForm(name)), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s %q", service.ErrNotFound, name, c.PostForm(name))
	}
	return n, nil
}

func formQuantity(c *gin.Context, def int) (int, error) {
	raw := strings.TrimSpace(c.PostForm("quantity"))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", cart.ErrInvalidQuantity, raw)
	}
	return n, nil
}

// selectProfile switches the session to another profile
func (h *Handler) selectProfile(c *gin.Context) {
	id, err := formInt64(c, "user_id")
	if err != nil {
		h.fail(c, err)
		return
	}
	u, err := h.Profiles.GetProfile(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	currentSession(c).SetUser(u)
	h.logger.Info("Profile selected", zap.Int64("user_id", u.ID), zap.String("role", string(u.Role)))
	h.done(c, h.Router.Href(layout.HomePath(u.Role)), "toast.profile_selected", u.DisplayName)
}

func (h *Handler) logout(c *gin.Context) {
	currentSession(c).SetUser(nil)
	h.done(c, h.Router.Href("/"), "toast.signed_out")
}

// toggleTheme flips the stored theme
func (h *Handler) toggleTheme(c *gin.Context) {
	next := layout.ParseTheme(cookie(c, layout.ThemeCookie)).Toggle()
	c.SetCookie(layout.ThemeCookie, string(next), 365*24*3600, "/", "", h.Secure, false)
	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"theme": next})
		return
	}
	h.redirect(c, "")
}

// setLanguage stores the chosen language; unsupported codes fall back
func (h *Handler) setLanguage(c *gin.Context) {
	lang := h.Translator.Normalize(c.PostForm("lang"))
	c.SetCookie(langCookie, lang, 365*24*3600, "/", "", h.Secure, false)
	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"lang": lang, "rtl": h.Translator.IsRTL(lang)})
		return
	}
	h.redirect(c, "")
}

func (h *Handler) getCart(c *gin.Context) {
	items, err := currentSession(c).Cart.Load(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":  items,
		"groups": cart.GroupBySeller(items),
		"count":  cart.Count(items),
		"total":  cart.Total(items).StringFixed(2),
	})
}

func (h *Handler) addToCart(c *gin.Context) {
	productID, err := formInt64(c, "product_id")
	if err != nil {
		h.fail(c, err)
		return
	}
	qty, err := formQuantity(c, 0)
	if err != nil {
		h.fail(c, err)
		return
	}

	p, err := h.Catalog.AddToCart(c.Request.Context(), currentSession(c).Cart, productID, qty, c.PostForm("size"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.done(c, "", "toast.cart_added", p.Name)
}

func (h *Handler) updateCart(c *gin.Context) {
	qty, err := formQuantity(c, -1)
	if err == nil && qty < 0 {
		err = fmt.Errorf("%w: missing", cart.ErrInvalidQuantity)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := currentSession(c).Cart.UpdateQuantity(c.Request.Context(), c.PostForm("key"), qty); err != nil {
		h.fail(c, err)
		return
	}
	h.done(c, "", "toast.cart_updated")
}

func (h *Handler) removeFromCart(c *gin.Context) {
	if err := currentSession(c).Cart.Remove(c.Request.Context(), c.PostForm("key")); err != nil {
		h.fail(c, err)
		return
	}
	h.done(c, "", "toast.cart_removed")
}

func (h *Handler) clearCart(c *gin.Context) {
	if err := currentSession(c).Cart.Clear(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	h.done(c, "", "toast.cart_cleared")
}

// checkout places one order per seller in the cart
func (h *Handler) checkout(c *gin.Context) {
	s := currentSession(c)
	pct, err := strconv.Atoi(c.PostForm("deposit"))
	if err != nil {
		h.fail(c, fmt.Errorf("%w: %q", service.ErrInvalidDeposit, c.PostForm("deposit")))
		return
	}

	result, err := h.Orders.Checkout(c.Request.Context(), &service.CheckoutRequest{
		BuyerID:        s.User().ID,
		Cart:           s.Cart,
		DepositPercent: pct,
		IdempotencyKey: c.PostForm("idempotency_key"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusCreated, result)
		return
	}
	h.done(c, h.Router.Href("/buyer/orders"), "toast.order_placed", len(result.Orders))
}

// saveProduct creates or updates one of the seller's products
func (h *Handler) saveProduct(c *gin.Context) {
	u := currentSession(c).User()
	p := &models.Product{
		SellerID:    u.ID,
		Name:        strings.TrimSpace(c.PostForm("name")),
		Description: c.PostForm("description"),
		Unit:        strings.TrimSpace(c.PostForm("unit")),
	}
	p.MainCategory, p.Subcategory, _ = strings.Cut(c.PostForm("subcategory"), "|")

	var err error
	if raw := c.PostForm("id"); raw != "" {
		if p.ID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			h.fail(c, fmt.Errorf("%w: id %q", service.ErrNotFound, raw))
			return
		}
	}
	if p.Price, err = decimal.NewFromString(strings.TrimSpace(c.PostForm("price"))); err != nil {
		h.fail(c, fmt.Errorf("%w: price", service.ErrInvalidProduct))
		return
	}
	if p.MinOrderQty, err = strconv.Atoi(c.DefaultPostForm("min_order_qty", "1")); err != nil {
		h.fail(c, fmt.Errorf("%w: min order quantity", service.ErrInvalidProduct))
		return
	}
	if p.Stock, err = strconv.Atoi(c.DefaultPostForm("stock", "0")); err != nil {
		h.fail(c, fmt.Errorf("%w: stock", service.ErrInvalidProduct))
		return
	}
	p.Sizes = pq.StringArray{}
	for _, size := range strings.Split(c.PostForm("sizes"), ",") {
		if size = strings.TrimSpace(size); size != "" {
			p.Sizes = append(p.Sizes, size)
		}
	}

	if err := h.Catalog.SaveProduct(c.Request.Context(), p); err != nil {
		h.fail(c, err)
		return
	}
	h.done(c, h.Router.Href("/seller/products"), "toast.product_saved")
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, err := formInt64(c, "id")
	if err == nil {
		err = h.Catalog.DeleteProduct(c.Request.Context(), currentSession(c).User().ID, id)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.done(c, h.Router.Href("/seller/products"), "toast.product_deleted")
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	id, err := formInt64(c, "order_id")
	if err == nil {
		err = h.Orders.UpdateStatus(c.Request.Context(), currentSession(c).User().ID, id, c.PostForm("status"))
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.done(c, "", "toast.status_updated")
}

func (h *Handler) recordBalancePayment(c *gin.Context) {
	id, err := formInt64(c, "invoice_id")
	if err == nil {
		err = h.Invoices.RecordBalancePayment(c.Request.Context(), currentSession(c).User().ID, id)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.done(c, "", "toast.payment_recorded")
}

func (h *Handler) addBranch(c *gin.Context) {
	b := &models.Branch{
		SellerID: currentSession(c).User().ID,
		Name:     strings.TrimSpace(c.PostForm("name")),
		City:     strings.TrimSpace(c.PostForm("city")),
		Address:  strings.TrimSpace(c.PostForm("address")),
		Phone:    strings.TrimSpace(c.PostForm("phone")),
	}
	if err := h.Profiles.AddBranch(c.Request.Context(), b); err != nil {
		h.fail(c, err)
		return
	}
	h.done(c, h.Router.Href("/seller/branches"), "toast.branch_saved")
}

func (h *Handler) removeBranch(c *gin.Context) {
	id, err := formInt64(c, "id")
	if err == nil {
		err = h.Profiles.RemoveBranch(c.Request.Context(), currentSession(c).User().ID, id)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.done(c, h.Router.Href("/seller/branches"), "toast.branch_deleted")
}

// getOrder returns an order with its items and, once charged, its payment
func (h *Handler) getOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	detail, err := h.Orders.GetOrder(c.Request.Context(), currentSession(c).User(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	response := gin.H{
		"order": detail.Order,
		"items": detail.Items,
	}
	if h.Payments != nil {
		payment, err := h.Payments.GetPayment(c.Request.Context(), id)
		switch {
		case err == nil:
			response["payment"] = payment
		case !errors.Is(err, service.ErrNotFound):
			h.logger.Warn("Failed to load payment", zap.Int64("order_id", id), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, response)
}

// updateProfile saves the editable profile fields and refreshes the session copy
func (h *Handler) updateProfile(c *gin.Context) {
	s := currentSession(c)
	ctx := c.Request.Context()

	u, err := h.Profiles.GetProfile(ctx, s.User().ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	u.DisplayName = strings.TrimSpace(c.PostForm("display_name"))
	u.CompanyName = strings.TrimSpace(c.PostForm("company_name"))
	u.Phone = strings.TrimSpace(c.PostForm("phone"))
	u.City = strings.TrimSpace(c.PostForm("city"))

	if err := h.Profiles.UpdateProfile(ctx, u); err != nil {
		h.fail(c, err)
		return
	}
	s.SetUser(u)
	h.done(c, "", "toast.profile_saved")
}

func (h *Handler) postMessage(c *gin.Context) {
	if _, err := h.Support.Post(c.Request.Context(), currentSession(c).User().ID, c.PostForm("body")); err != nil {
		h.fail(c, err)
		return
	}
	h.done(c, "", "toast.message_sent")
}

func (h *Handler) markNotificationsRead(c *gin.Context) {
	if err := h.Support.MarkAllRead(c.Request.Context(), currentSession(c).User().ID); err != nil {
		h.fail(c, err)
		return
	}
	h.done(c, "", "toast.notifications_read")
}
