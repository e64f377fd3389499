package domain

import (
	cartdomain "github.com/dwikikusuma/codshop/internal/cart/domain"
	orderdomain "github.com/dwikikusuma/codshop/internal/order/domain"
	"github.com/shopspring/decimal"
)

// QuoteLine prices one cart item against the live catalog.
type QuoteLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
	Available int             `json:"available"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type Quote struct {
	Lines []QuoteLine     `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// LineItems snapshots the quote into order lines.
func (q Quote) LineItems() []orderdomain.LineItem {
	out := make([]orderdomain.LineItem, 0, len(q.Lines))
	for _, ln := range q.Lines {
		out = append(out, orderdomain.LineItem{
			ProductID: ln.ProductID,
			Name:      ln.Name,
			Price:     ln.UnitPrice,
			Quantity:  ln.Quantity,
			Image:     ln.Image,
		})
	}
	return out
}

// Placement is everything the order builder commits in one unit: the cart it
// consumes (Expected must still match the stored cart), the stock to take and
// the order to insert.
type Placement struct {
	UserID         string
	CartID         string
	Expected       []cartdomain.CartItem
	Lines          []orderdomain.LineItem
	Total          decimal.Decimal
	Address        orderdomain.ShippingAddress
	IdempotencyKey string
}
