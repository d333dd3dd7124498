package cart

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func rate(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestAddItem_NewLine(t *testing.T) {
	c := New(dec("16"))

	if err := c.AddItem(1, "Cafe", dec("50.00"), 3, nil); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	lines := c.Lines()
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(lines))
	}
	if lines[0].Quantity != 1 {
		t.Errorf("Expected quantity 1, got %d", lines[0].Quantity)
	}
	if !lines[0].TaxRate.Equal(dec("16")) {
		t.Errorf("Expected standard tax rate 16, got %s", lines[0].TaxRate)
	}
}

func TestAddItem_DuplicateIncrementsQuantity(t *testing.T) {
	c := New(dec("16"))

	if err := c.AddItem(1, "Cafe", dec("50.00"), 3, nil); err != nil {
		t.Fatalf("first AddItem failed: %v", err)
	}
	if err := c.AddItem(1, "Cafe", dec("50.00"), 3, nil); err != nil {
		t.Fatalf("second AddItem failed: %v", err)
	}

	lines := c.Lines()
	if len(lines) != 1 {
		t.Fatalf("Expected a single line, got %d", len(lines))
	}
	if lines[0].Quantity != 2 {
		t.Errorf("Expected quantity 2, got %d", lines[0].Quantity)
	}
}

func TestAddItem_OutOfStockAtCap(t *testing.T) {
	c := New(dec("16"))

	if err := c.AddItem(1, "Cafe", dec("50.00"), 1, nil); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	err := c.AddItem(1, "Cafe", dec("50.00"), 1, nil)
	if !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("Expected ErrOutOfStock, got %v", err)
	}
	if c.Lines()[0].Quantity != 1 {
		t.Errorf("Cart changed after failed add, quantity %d", c.Lines()[0].Quantity)
	}
}

func TestAddItem_ZeroStock(t *testing.T) {
	c := New(dec("16"))

	err := c.AddItem(1, "Agotado", dec("10.00"), 0, nil)
	if !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("Expected ErrOutOfStock for zero stock, got %v", err)
	}
	if !c.Empty() {
		t.Error("Cart should stay empty")
	}
}

func TestAddItem_Validation(t *testing.T) {
	c := New(dec("16"))

	if err := c.AddItem(1, "Malo", dec("-1"), 5, nil); err == nil {
		t.Error("Expected error for negative price")
	}
	if err := c.AddItem(2, "Malo", dec("1"), -1, nil); err == nil {
		t.Error("Expected error for negative stock")
	}
	if err := c.AddItem(3, "Malo", dec("1"), 5, rate("101")); err == nil {
		t.Error("Expected error for tax rate above 100")
	}
	if !c.Empty() {
		t.Error("Cart should stay empty after rejected adds")
	}
}

func TestUpdateQuantity_DeltaAgnostic(t *testing.T) {
	c := New(dec("16"))
	if err := c.AddItem(1, "Cafe", dec("50.00"), 10, nil); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	if err := c.UpdateQuantity(1, 4); err != nil {
		t.Fatalf("UpdateQuantity failed: %v", err)
	}
	if got := c.Lines()[0].Quantity; got != 5 {
		t.Errorf("Expected quantity 5, got %d", got)
	}

	if err := c.UpdateQuantity(1, -2); err != nil {
		t.Fatalf("UpdateQuantity failed: %v", err)
	}
	if got := c.Lines()[0].Quantity; got != 3 {
		t.Errorf("Expected quantity 3, got %d", got)
	}
}

func TestUpdateQuantity_DropToZeroRemovesLine(t *testing.T) {
	c := New(dec("16"))
	if err := c.AddItem(1, "Cafe", dec("50.00"), 3, nil); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if err := c.AddItem(1, "Cafe", dec("50.00"), 3, nil); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	if err := c.UpdateQuantity(1, -2); err != nil {
		t.Fatalf("UpdateQuantity failed: %v", err)
	}
	if !c.Empty() {
		t.Error("Expected empty cart after quantity dropped to zero")
	}
}

func TestUpdateQuantity_OverStock(t *testing.T) {
	c := New(dec("16"))
	if err := c.AddItem(1, "Cafe", dec("50.00"), 3, nil); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if err := c.AddItem(1, "Cafe", dec("50.00"), 3, nil); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	err := c.UpdateQuantity(1, 5)
	if !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("Expected ErrOutOfStock, got %v", err)
	}
	if got := c.Lines()[0].Quantity; got != 2 {
		t.Errorf("Quantity changed after failed update, got %d", got)
	}
}

func TestRemoveItem_AbsentIsNoop(t *testing.T) {
	c := New(dec("16"))
	c.RemoveItem(42) // must not panic or error
	if !c.Empty() {
		t.Error("Cart should be empty")
	}
}

func TestInvariants_NoDuplicatesNoBadQuantities(t *testing.T) {
	c := New(dec("16"))

	// Arbitrary mutation sequence; invariants must hold throughout.
	_ = c.AddItem(1, "A", dec("10.00"), 2, nil)
	_ = c.AddItem(2, "B", dec("5.00"), 1, nil)
	_ = c.AddItem(1, "A", dec("10.00"), 2, nil)
	_ = c.AddItem(1, "A", dec("10.00"), 2, nil) // over cap, rejected
	_ = c.UpdateQuantity(2, 3)                  // over cap, rejected
	_ = c.UpdateQuantity(1, -1)
	c.RemoveItem(99)

	seen := map[int64]bool{}
	for _, l := range c.Lines() {
		if seen[l.ProductID] {
			t.Errorf("Duplicate line for product %d", l.ProductID)
		}
		seen[l.ProductID] = true
		if l.Quantity < 1 || l.Quantity > l.StockCap {
			t.Errorf("Product %d quantity %d out of [1, %d]", l.ProductID, l.Quantity, l.StockCap)
		}
	}
}

func TestTotals_Subtotal(t *testing.T) {
	c := New(dec("16"))
	_ = c.AddItem(1, "A", dec("10.00"), 5, nil)
	_ = c.AddItem(1, "A", dec("10.00"), 5, nil)
	_ = c.AddItem(2, "B", dec("5.00"), 5, nil)

	totals := c.Totals()
	if !totals.Subtotal.Equal(dec("25.00")) {
		t.Errorf("Expected subtotal 25.00, got %s", totals.Subtotal)
	}
}

func TestTotals_MixedTaxRates(t *testing.T) {
	c := New(dec("16"))
	_ = c.AddItem(1, "A", dec("100"), 5, rate("16"))
	_ = c.AddItem(2, "B", dec("100"), 5, rate("8"))

	totals := c.Totals()
	if !totals.Tax.Equal(dec("24")) {
		t.Errorf("Expected per-line tax 16 + 8 = 24, got %s", totals.Tax)
	}
	if !totals.Total.Equal(dec("224")) {
		t.Errorf("Expected grand total 224, got %s", totals.Total)
	}
}

func TestTotals_EmptyCart(t *testing.T) {
	c := New(dec("16"))

	totals := c.Totals()
	if !totals.Subtotal.IsZero() || !totals.Tax.IsZero() || !totals.Total.IsZero() {
		t.Errorf("Expected all-zero totals, got %s/%s/%s", totals.Subtotal, totals.Tax, totals.Total)
	}
}

func TestClear_ThenTotalsZero(t *testing.T) {
	c := New(dec("16"))
	_ = c.AddItem(1, "A", dec("10.00"), 5, nil)
	c.Clear()

	totals := c.Totals()
	if !totals.Subtotal.IsZero() || !totals.Tax.IsZero() || !totals.Total.IsZero() {
		t.Error("Expected zero totals after Clear")
	}
}

func TestBuildCheckoutRequest_EmptyCart(t *testing.T) {
	c := New(dec("16"))

	req, err := c.BuildCheckoutRequest(nil, "cash")
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("Expected ErrEmptyCart, got %v", err)
	}
	if req != nil {
		t.Error("Expected no request object on empty cart")
	}
}

func TestBuildCheckoutRequest_PreservesOrder(t *testing.T) {
	c := New(dec("16"))
	_ = c.AddItem(3, "C", dec("1"), 5, nil)
	_ = c.AddItem(1, "A", dec("1"), 5, nil)
	_ = c.AddItem(2, "B", dec("1"), 5, nil)
	_ = c.AddItem(1, "A", dec("1"), 5, nil)

	customerID := int64(7)
	req, err := c.BuildCheckoutRequest(&customerID, "card")
	if err != nil {
		t.Fatalf("BuildCheckoutRequest failed: %v", err)
	}

	wantIDs := []int64{3, 1, 2}
	wantQty := []int{1, 2, 1}
	if len(req.Items) != len(wantIDs) {
		t.Fatalf("Expected %d items, got %d", len(wantIDs), len(req.Items))
	}
	for i, item := range req.Items {
		if item.ProductID != wantIDs[i] || item.Quantity != wantQty[i] {
			t.Errorf("Item %d: got {%d, %d}, want {%d, %d}",
				i, item.ProductID, item.Quantity, wantIDs[i], wantQty[i])
		}
	}
	if req.CustomerID == nil || *req.CustomerID != 7 {
		t.Error("Customer reference lost in checkout request")
	}
	if req.PaymentMethod != "card" {
		t.Errorf("Expected payment method card, got %s", req.PaymentMethod)
	}
}

func TestSubscribe_FiresOnSuccessOnly(t *testing.T) {
	c := New(dec("16"))
	var fired int
	c.Subscribe(func() { fired++ })

	_ = c.AddItem(1, "A", dec("1"), 1, nil) // ok
	if fired != 1 {
		t.Fatalf("Expected 1 notification, got %d", fired)
	}

	_ = c.AddItem(1, "A", dec("1"), 1, nil) // out of stock, no refresh
	if fired != 1 {
		t.Errorf("Notification fired on failed mutation, count %d", fired)
	}

	_ = c.UpdateQuantity(1, 10) // over cap, no refresh
	if fired != 1 {
		t.Errorf("Notification fired on failed update, count %d", fired)
	}

	c.Clear()
	if fired != 2 {
		t.Errorf("Expected notification on Clear, count %d", fired)
	}
}

func TestEndToEnd_AddUpdateRemove(t *testing.T) {
	c := New(dec("16"))

	if err := c.AddItem(1, "P1", dec("50"), 3, rate("16")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := c.Lines()[0].Quantity; got != 1 {
		t.Fatalf("Expected quantity 1, got %d", got)
	}

	if err := c.AddItem(1, "P1", dec("50"), 3, rate("16")); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if got := c.Lines()[0].Quantity; got != 2 {
		t.Fatalf("Expected quantity 2, got %d", got)
	}

	if err := c.UpdateQuantity(1, 5); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("Expected ErrOutOfStock, got %v", err)
	}
	if got := c.Lines()[0].Quantity; got != 2 {
		t.Fatalf("Quantity changed after failed update, got %d", got)
	}

	c.RemoveItem(1)
	if !c.Empty() {
		t.Fatal("Expected empty cart after removing last line")
	}
}

func TestCheckoutSucceeded_ClearsCart(t *testing.T) {
	c := New(dec("16"))
	_ = c.AddItem(1, "A", dec("10"), 5, nil)

	c.CheckoutSucceeded()
	if !c.Empty() {
		t.Error("Expected empty cart after confirmed checkout")
	}
}
