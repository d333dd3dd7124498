package checkout

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"puntoventa/internal/cart"
	"puntoventa/internal/storage"
	"puntoventa/pkg/api"
)

// CHECKOUT SUBMISSION

// SubmissionError means the backend rejected the sale or the network call
// failed. The cart is left untouched so the identical submission can be
// retried.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	var apiErr *api.Error
	if errors.As(e.Err, &apiErr) && apiErr.Msg != "" {
		return apiErr.Msg
	}
	return "sale submission failed"
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// SalesAPI is the slice of the backend client checkout needs.
type SalesAPI interface {
	CreateSale(ctx context.Context, req api.SaleRequest) (*api.Sale, error)
}

// Journal records completed sales locally. Journal failures never fail a
// sale the backend already accepted.
type Journal interface {
	SaveSale(ctx context.Context, rec storage.SaleRecord) (int64, error)
}

// CatalogCache is invalidated after a sale, since the backend decremented
// stock.
type CatalogCache interface {
	InvalidateProducts(ctx context.Context)
}

// Submitter serializes checkout submissions for one cart. A second submit
// queues behind the mutex; by the time it runs the cart has been cleared, so
// a double-fired checkout fails with ErrEmptyCart instead of selling twice.
type Submitter struct {
	cart    *cart.Cart
	api     SalesAPI
	journal Journal
	catalog CatalogCache
	logger  *zap.Logger

	mu sync.Mutex
}

func NewSubmitter(c *cart.Cart, salesAPI SalesAPI, journal Journal, catalog CatalogCache, logger *zap.Logger) *Submitter {
	return &Submitter{
		cart:    c,
		api:     salesAPI,
		journal: journal,
		catalog: catalog,
		logger:  logger,
	}
}

// Submit sends the cart to the backend. On success the cart is cleared and
// the backend-confirmed sale returned. On failure the cart is preserved:
// session expiry passes through untouched, anything else is wrapped in a
// SubmissionError carrying the backend message when there is one. There is
// no automatic retry.
func (s *Submitter) Submit(ctx context.Context, customerID *int64, paymentMethod, cashier string) (*api.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, err := s.cart.BuildCheckoutRequest(customerID, paymentMethod)
	if err != nil {
		return nil, err
	}

	// Snapshot before the cart is cleared; only used for the journal.
	totals := s.cart.Totals()

	saleReq := api.SaleRequest{
		CustomerID:    req.CustomerID,
		PaymentMethod: req.PaymentMethod,
		Items:         make([]api.SaleItem, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		saleReq.Items = append(saleReq.Items, api.SaleItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	sale, err := s.api.CreateSale(ctx, saleReq)
	if err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			return nil, err
		}
		s.logger.Warn("Sale submission failed", zap.Error(err))
		return nil, &SubmissionError{Err: err}
	}

	s.cart.CheckoutSucceeded()

	if s.journal != nil {
		rec := storage.SaleRecord{
			SaleID:        sale.ID,
			CustomerID:    customerID,
			Cashier:       cashier,
			PaymentMethod: paymentMethod,
			Subtotal:      totals.Subtotal.InexactFloat64(),
			Tax:           totals.Tax.InexactFloat64(),
			Total:         sale.Total,
			ItemCount:     len(req.Items),
		}
		if _, err := s.journal.SaveSale(ctx, rec); err != nil {
			s.logger.Warn("Failed to journal completed sale",
				zap.Int64("sale_id", sale.ID),
				zap.Error(err))
		}
	}

	if s.catalog != nil {
		s.catalog.InvalidateProducts(ctx)
	}

	s.logger.Info("Sale completed",
		zap.Int64("sale_id", sale.ID),
		zap.Float64("total", sale.Total))
	return sale, nil
}
