package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"puntoventa/internal/config"
	"puntoventa/pkg/redis"
)

// LOCAL SALES JOURNAL
//
// The backend owns the sale of record; this journal is the terminal's own
// write-behind copy of what it sold, for end-of-day reports that work even
// when the backend is unreachable.

const summaryCacheKey = "journal:summary"

type SalesJournal struct {
	db     *sqlx.DB
	redis  *redis.Client
	logger *zap.Logger
}

// SaleRecord is one journaled checkout. Money columns hold the display
// figures; Total is the backend-confirmed amount.
type SaleRecord struct {
	ID            int64     `db:"id"`
	SaleID        int64     `db:"sale_id"`
	CustomerID    *int64    `db:"customer_id"`
	Cashier       string    `db:"cashier"`
	PaymentMethod string    `db:"payment_method"`
	Subtotal      float64   `db:"subtotal"`
	Tax           float64   `db:"tax"`
	Total         float64   `db:"total"`
	ItemCount     int       `db:"item_count"`
	CreatedAt     time.Time `db:"created_at"`
}

func NewSalesJournal(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) (*SalesJournal, error) {
	const operation = "storage.NewSalesJournal"

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
	)

	var db *sqlx.DB
	var err error

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 2 * time.Minute
	retryPolicy.MaxInterval = 15 * time.Second

	logger.Info("Connecting to PostgreSQL...")

	err = backoff.RetryNotify(
		func() error {
			db, err = sqlx.ConnectContext(ctx, "postgres", connStr)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}

			if err = db.PingContext(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			return nil
		},
		retryPolicy,
		func(err error, duration time.Duration) {
			logger.Warn("PostgreSQL connection failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", duration))
		},
	)

	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect after retries: %w", operation, err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	logger.Info("Successfully connected to PostgreSQL")
	return &SalesJournal{
		db:     db,
		redis:  redisClient,
		logger: logger,
	}, nil
}

// SaveSale appends a completed checkout to the journal.
func (s *SalesJournal) SaveSale(ctx context.Context, rec SaleRecord) (int64, error) {
	const query = `
        INSERT INTO sales_journal (
            sale_id, customer_id, cashier, payment_method,
            subtotal, tax, total, item_count, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		rec.SaleID,
		rec.CustomerID,
		rec.Cashier,
		rec.PaymentMethod,
		rec.Subtotal,
		rec.Tax,
		rec.Total,
		rec.ItemCount,
		createdAt,
	).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("failed to save sale: %w", err)
	}

	// Invalidate summary cache
	s.redis.Del(ctx, summaryCacheKey)

	return id, nil
}

// RecentSales returns the newest journal entries, newest first.
func (s *SalesJournal) RecentSales(ctx context.Context, limit int) ([]SaleRecord, error) {
	const query = `SELECT * FROM sales_journal ORDER BY created_at DESC LIMIT $1`

	var records []SaleRecord
	if err := s.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch journal: %w", err)
	}
	return records, nil
}

type SalesSummary struct {
	TotalSales   int     `json:"total_sales"`
	TotalRevenue float64 `json:"total_revenue"`
	TodaySales   int     `json:"today_sales"`
	TodayRevenue float64 `json:"today_revenue"`
	WeekSales    int     `json:"week_sales"`
	WeekRevenue  float64 `json:"week_revenue"`
	MonthSales   int     `json:"month_sales"`
	MonthRevenue float64 `json:"month_revenue"`
}

// Summary aggregates the journal into day/week/month windows, cached briefly
// in redis since the dashboard asks for it on every visit.
func (s *SalesJournal) Summary(ctx context.Context) (*SalesSummary, error) {
	if cached, err := s.redis.Get(ctx, summaryCacheKey); err == nil {
		var summary SalesSummary
		if err := json.Unmarshal(cached, &summary); err == nil {
			return &summary, nil
		}
	}

	type countRevenue struct {
		Count   int     `db:"count"`
		Revenue float64 `db:"revenue"`
	}

	window := func(since *time.Time) (countRevenue, error) {
		var out countRevenue
		if since == nil {
			err := s.db.GetContext(ctx, &out, `
                SELECT COUNT(*) AS count, COALESCE(SUM(total), 0) AS revenue
                FROM sales_journal
            `)
			return out, err
		}
		err := s.db.GetContext(ctx, &out, `
            SELECT COUNT(*) AS count, COALESCE(SUM(total), 0) AS revenue
            FROM sales_journal
            WHERE created_at >= $1
        `, *since)
		return out, err
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	week := today.AddDate(0, 0, -7)
	month := today.AddDate(0, 0, -30)

	summary := &SalesSummary{}

	all, err := window(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate journal: %w", err)
	}
	summary.TotalSales = all.Count
	summary.TotalRevenue = all.Revenue

	todayStats, err := window(&today)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate journal: %w", err)
	}
	summary.TodaySales = todayStats.Count
	summary.TodayRevenue = todayStats.Revenue

	weekStats, err := window(&week)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate journal: %w", err)
	}
	summary.WeekSales = weekStats.Count
	summary.WeekRevenue = weekStats.Revenue

	monthStats, err := window(&month)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate journal: %w", err)
	}
	summary.MonthSales = monthStats.Count
	summary.MonthRevenue = monthStats.Revenue

	if data, err := json.Marshal(summary); err == nil {
		s.redis.Set(ctx, summaryCacheKey, data, 5*time.Minute)
	}

	return summary, nil
}

// DB exposes the raw handle for the migrator.
func (s *SalesJournal) DB() *sqlx.DB {
	return s.db
}

func (s *SalesJournal) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
