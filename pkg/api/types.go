package api

import (
	"fmt"
	"time"
)

// Product is a catalog entry as served by GET /products. IVARate is optional;
// products without one get the terminal's standard rate when added to a cart.
type Product struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Price      float64  `json:"price"`
	Stock      int      `json:"stock"`
	MinStock   int      `json:"min_stock"`
	IVARate    *float64 `json:"iva_rate,omitempty"`
	Category   string   `json:"category,omitempty"`
	IsLowStock bool     `json:"is_low_stock"`
}

func (p Product) validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("product without id")
	}
	if p.Name == "" {
		return fmt.Errorf("product %d: empty name", p.ID)
	}
	if p.Price < 0 {
		return fmt.Errorf("product %d: negative price", p.ID)
	}
	if p.Stock < 0 {
		return fmt.Errorf("product %d: negative stock", p.ID)
	}
	return nil
}

// Customer as served by GET /customers.
type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (c Customer) validate() error {
	if c.ID <= 0 {
		return fmt.Errorf("customer without id")
	}
	if c.Name == "" {
		return fmt.Errorf("customer %d: empty name", c.ID)
	}
	return nil
}

// User is the authenticated account returned by login.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginResult is the POST /auth/login response.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

// SaleItem is one {product, quantity} pair of a sale submission.
type SaleItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// SaleRequest is the POST /sales body. CustomerID serializes to null for
// anonymous sales.
type SaleRequest struct {
	CustomerID    *int64     `json:"customer_id"`
	PaymentMethod string     `json:"payment_method"`
	Items         []SaleItem `json:"items"`
}

// Sale is a persisted sale record. Total is the backend-computed figure and
// the one shown to the user after checkout.
type Sale struct {
	ID            int64     `json:"id"`
	Customer      string    `json:"customer,omitempty"`
	User          string    `json:"user,omitempty"`
	Total         float64   `json:"total"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// DashboardSummary is the GET /dashboard response.
type DashboardSummary struct {
	TotalSales     float64 `json:"total_sales"`
	TotalProducts  int     `json:"total_products"`
	TotalCustomers int     `json:"total_customers"`
	TotalSuppliers int     `json:"total_suppliers"`
	RecentSales    []Sale  `json:"recent_sales"`
}
