package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CART ENGINE

// Line is one product's presence in the active cart. Name, unit price, tax
// rate and stock cap are snapshots taken when the product was added; they are
// not re-fetched afterwards.
type Line struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal // percent, 0-100
	Quantity  int
	StockCap  int
}

// Totals is the pricing breakdown of the whole cart. Values carry full
// precision; rounding happens only when they are displayed.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// CheckoutItem reduces a line to what the backend needs. Prices and tax are
// recomputed authoritatively server-side and never trusted from the client.
type CheckoutItem struct {
	ProductID int64
	Quantity  int
}

// CheckoutRequest is the write-only projection of the cart submitted on
// checkout. A nil CustomerID means an anonymous sale.
type CheckoutRequest struct {
	CustomerID    *int64
	PaymentMethod string
	Items         []CheckoutItem
}

// Cart is an ordered sequence of lines, insertion order preserved. One cart
// exists per authenticated session; it is owned by the session that created
// it and is mutated only from that session's event loop.
type Cart struct {
	standardTaxRate decimal.Decimal
	lines           []Line
	listeners       []func()
}

var hundred = decimal.NewFromInt(100)

// New creates an empty cart. standardTaxRate (percent) is applied to products
// that do not carry their own IVA rate.
func New(standardTaxRate decimal.Decimal) *Cart {
	return &Cart{standardTaxRate: standardTaxRate}
}

// Subscribe registers a display-refresh callback, fired after every
// successful mutation. Failed mutations leave the cart untouched and fire
// nothing.
func (c *Cart) Subscribe(fn func()) {
	c.listeners = append(c.listeners, fn)
}

func (c *Cart) notify() {
	for _, fn := range c.listeners {
		fn()
	}
}

func (c *Cart) find(productID int64) int {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// AddItem puts one unit of a product into the cart. Re-adding a product that
// is already present increments its quantity instead of creating a duplicate
// line. Returns ErrOutOfStock, leaving the cart unchanged, when the stock
// snapshot is exhausted. A nil taxRate means the standard rate applies.
func (c *Cart) AddItem(productID int64, name string, unitPrice decimal.Decimal, stockCap int, taxRate *decimal.Decimal) error {
	if unitPrice.IsNegative() {
		return fmt.Errorf("product %d: negative unit price %s", productID, unitPrice)
	}
	if stockCap < 0 {
		return fmt.Errorf("product %d: negative stock %d", productID, stockCap)
	}

	rate := c.standardTaxRate
	if taxRate != nil {
		if taxRate.IsNegative() || taxRate.GreaterThan(hundred) {
			return fmt.Errorf("product %d: tax rate %s out of range", productID, taxRate)
		}
		rate = *taxRate
	}

	if i := c.find(productID); i >= 0 {
		if c.lines[i].Quantity >= c.lines[i].StockCap {
			return ErrOutOfStock
		}
		c.lines[i].Quantity++
		c.notify()
		return nil
	}

	if stockCap == 0 {
		return ErrOutOfStock
	}

	c.lines = append(c.lines, Line{
		ProductID: productID,
		Name:      name,
		UnitPrice: unitPrice,
		TaxRate:   rate,
		Quantity:  1,
		StockCap:  stockCap,
	})
	c.notify()
	return nil
}

// UpdateQuantity adjusts a line's quantity by delta. Dropping to zero or
// below removes the line entirely; exceeding the stock snapshot fails with
// ErrOutOfStock and changes nothing. Unknown products are a no-op.
func (c *Cart) UpdateQuantity(productID int64, delta int) error {
	i := c.find(productID)
	if i < 0 {
		return nil
	}

	newQty := c.lines[i].Quantity + delta
	switch {
	case newQty <= 0:
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	case newQty > c.lines[i].StockCap:
		return ErrOutOfStock
	default:
		c.lines[i].Quantity = newQty
	}
	c.notify()
	return nil
}

// RemoveItem deletes a line if present. Removing an absent product is a
// no-op, not an error.
func (c *Cart) RemoveItem(productID int64) {
	if i := c.find(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
	c.notify()
}

// Clear empties the cart unconditionally.
func (c *Cart) Clear() {
	c.lines = nil
	c.notify()
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

// Lines returns a copy of the cart contents in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Totals computes subtotal, tax and grand total. Tax is accumulated per line,
// not on the aggregate subtotal, so mixed IVA rates add up correctly. An
// empty cart yields all zeros.
func (c *Cart) Totals() Totals {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, l := range c.lines {
		lineSubtotal := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		subtotal = subtotal.Add(lineSubtotal)
		tax = tax.Add(lineSubtotal.Mul(l.TaxRate).Div(hundred))
	}
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// BuildCheckoutRequest projects the cart into a submission payload, one
// {product, quantity} pair per line in cart order. Fails with ErrEmptyCart
// when there is nothing to sell. Customer validity is the backend's concern.
func (c *Cart) BuildCheckoutRequest(customerID *int64, paymentMethod string) (*CheckoutRequest, error) {
	if len(c.lines) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]CheckoutItem, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, CheckoutItem{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	return &CheckoutRequest{
		CustomerID:    customerID,
		PaymentMethod: paymentMethod,
		Items:         items,
	}, nil
}

// CheckoutSucceeded clears the cart after the backend confirmed the sale.
// The engine does not reconcile the confirmed total against its own figures;
// the backend total is the one shown to the user.
func (c *Cart) CheckoutSucceeded() {
	c.Clear()
}
