package service

import (
	"errors"

	"marketplace/internal/cart"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrInvalidDeposit = errors.New("deposit percentage is not offered")
)

var hundred = decimal.NewFromInt(100)

// Amounts is the money breakdown of one order or of a whole checkout
type Amounts struct {
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
	Deposit   decimal.Decimal
	Remaining decimal.Decimal
}

func (a Amounts) add(b Amounts) Amounts {
	return Amounts{
		Subtotal:  a.Subtotal.Add(b.Subtotal),
		Tax:       a.Tax.Add(b.Tax),
		Total:     a.Total.Add(b.Total),
		Deposit:   a.Deposit.Add(b.Deposit),
		Remaining: a.Remaining.Add(b.Remaining),
	}
}

// SellerQuote is the order that checkout will create for one seller
type SellerQuote struct {
	SellerID   int64
	SellerName string
	Items      []cart.LineItem
	Amounts
}

// Quote prices a cart: one order per seller plus the grand totals
type Quote struct {
	DepositPercent int
	Orders         []SellerQuote
	Amounts
}

// SplitDeposit computes the up-front share of total (rounded half-up to
// cents) and what remains due
func SplitDeposit(total decimal.Decimal, percent int) (deposit, remaining decimal.Decimal) {
	deposit = total.Mul(decimal.NewFromInt(int64(percent))).Div(hundred).Round(2)
	return deposit, total.Sub(deposit)
}

// PriceOrder applies tax and the deposit split to a subtotal
func PriceOrder(subtotal, taxRate decimal.Decimal, depositPercent int) Amounts {
	tax := subtotal.Mul(taxRate).Round(2)
	total := subtotal.Add(tax)
	deposit, remaining := SplitDeposit(total, depositPercent)
	return Amounts{
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     total,
		Deposit:   deposit,
		Remaining: remaining,
	}
}

// QuoteCart groups items per seller and prices each group
func QuoteCart(items []cart.LineItem, taxRate decimal.Decimal, depositPercent int) (*Quote, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	if depositPercent <= 0 || depositPercent > 100 {
		return nil, ErrInvalidDeposit
	}

	q := &Quote{
		DepositPercent: depositPercent,
		Amounts:        Amounts{Subtotal: decimal.Zero, Tax: decimal.Zero, Total: decimal.Zero, Deposit: decimal.Zero, Remaining: decimal.Zero},
	}
	for _, g := range cart.GroupBySeller(items) {
		amounts := PriceOrder(g.Subtotal, taxRate, depositPercent)
		q.Orders = append(q.Orders, SellerQuote{
			SellerID:   g.SellerID,
			SellerName: g.SellerName,
			Items:      g.Items,
			Amounts:    amounts,
		})
		q.Amounts = q.Amounts.add(amounts)
	}
	return q, nil
}

// AllowedDeposit reports whether percent is one of the offered options
func AllowedDeposit(options []int, percent int) bool {
	for _, o := range options {
		if o == percent {
			return true
		}
	}
	return false
}
