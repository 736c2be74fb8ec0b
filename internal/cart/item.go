package cart

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one cart entry. Identity is the product plus any selected dimensions.
type LineItem struct {
	ProductID   int64             `json:"product_id"`
	Name        string            `json:"name"`
	SellerID    int64             `json:"seller_id"`
	SellerName  string            `json:"seller_name,omitempty"`
	UnitPrice   decimal.Decimal   `json:"unit_price"`
	Quantity    int               `json:"quantity"`
	MinOrderQty int               `json:"min_order_qty"`
	Unit        string            `json:"unit,omitempty"`
	Dimensions  map[string]string `json:"dimensions,omitempty"`
	AddedAt     time.Time         `json:"added_at"`
}

// Key returns the item's identity inside a cart
func (i LineItem) Key() string {
	return KeyFor(i.ProductID, i.Dimensions)
}

// Step is the minimum order quantity; quantities must be multiples of it
func (i LineItem) Step() int {
	if i.MinOrderQty <= 0 {
		return 1
	}
	return i.MinOrderQty
}

// LineTotal is unit price times quantity
func (i LineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// DimensionLabel renders selected dimensions as "k=v, k=v" in key order
func (i LineItem) DimensionLabel() string {
	return strings.ReplaceAll(dimensionKey(i.Dimensions), ";", ", ")
}

// KeyFor builds a composite key: the product id alone, or "id|k=v;k=v" with sorted dimension keys
func KeyFor(productID int64, dims map[string]string) string {
	id := strconv.FormatInt(productID, 10)
	if d := dimensionKey(dims); d != "" {
		return id + "|" + d
	}
	return id
}

func dimensionKey(dims map[string]string) string {
	if len(dims) == 0 {
		return ""
	}
	keys := make([]string, 0, len(dims))
	for k, v := range dims {
		if strings.TrimSpace(v) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+dims[k])
	}
	return strings.Join(parts, ";")
}

// SellerGroup is the slice of a cart belonging to one seller
type SellerGroup struct {
	SellerID   int64
	SellerName string
	Items      []LineItem
	Subtotal   decimal.Decimal
}

// GroupBySeller splits items per seller, keeping first-seen seller order and item order
func GroupBySeller(items []LineItem) []SellerGroup {
	var groups []SellerGroup
	index := make(map[int64]int)

	for _, it := range items {
		i, ok := index[it.SellerID]
		if !ok {
			i = len(groups)
			index[it.SellerID] = i
			groups = append(groups, SellerGroup{
				SellerID:   it.SellerID,
				SellerName: it.SellerName,
				Subtotal:   decimal.Zero,
			})
		}
		groups[i].Items = append(groups[i].Items, it)
		groups[i].Subtotal = groups[i].Subtotal.Add(it.LineTotal())
	}

	return groups
}

// Count sums quantities
func Count(items []LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// Total sums price times quantity
func Total(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}
