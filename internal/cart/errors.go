package cart

import "errors"

var (
	// ErrOutOfStock means the requested quantity exceeds the stock snapshot
	// taken when the product was added. The cart is left unchanged.
	ErrOutOfStock = errors.New("not enough stock")

	// ErrEmptyCart means checkout was attempted with no lines.
	ErrEmptyCart = errors.New("cart is empty")
)
