package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"digital_legacy_echo/internal/models"
)

// StatsService computes dashboard figures over orders, payments and the cash ledger
type StatsService struct {
	db *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

type Stats struct {
	Users   int64           `json:"users"`
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type CountPair struct {
	Placed      int64 `json:"placed"`
	Success     int64 `json:"success"`
	NeedsAction int64 `json:"needs_action"`
}

type KPI struct {
	Revenue       decimal.Decimal `json:"revenue"`
	CollectedCash decimal.Decimal `json:"collected_cash"`
	Cashflow      decimal.Decimal `json:"cashflow"`
	Orders        CountPair       `json:"orders"`
	Bills         CountPair       `json:"bills"`
}

type SeriesPoint struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
}

type DateRange struct {
	From *time.Time
	To   *time.Time
}

func (r DateRange) apply(db *gorm.DB, column string) *gorm.DB {
	if r.From != nil {
		db = db.Where(column+" >= ?", *r.From)
	}
	if r.To != nil {
		db = db.Where(column+" <= ?", *r.To)
	}
	return db
}

func (s *StatsService) Stats(ctx context.Context) (*Stats, error) {
	db := s.db.WithContext(ctx)
	out := &Stats{}
	if err := db.Model(&models.User{}).Count(&out.Users).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Order{}).Count(&out.Orders).Error; err != nil {
		return nil, err
	}
	revenue, err := s.completedRevenue(ctx, DateRange{})
	if err != nil {
		return nil, err
	}
	out.Revenue = revenue
	return out, nil
}

// KPI summarises a period. Revenue counts completed orders; cash figures come from the ledger.
func (s *StatsService) KPI(ctx context.Context, r DateRange) (*KPI, error) {
	out := &KPI{}

	revenue, err := s.completedRevenue(ctx, r)
	if err != nil {
		return nil, err
	}
	out.Revenue = revenue

	var cash []models.CashTransaction
	if err := r.apply(s.db.WithContext(ctx), "txn_date").Select("txn_type", "amount").Find(&cash).Error; err != nil {
		return nil, err
	}
	in, outflow := decimal.Zero, decimal.Zero
	for _, c := range cash {
		if c.TxnType == models.CashTxnIn {
			in = in.Add(c.Amount)
		} else {
			outflow = outflow.Add(c.Amount)
		}
	}
	out.CollectedCash = in
	out.Cashflow = in.Sub(outflow)

	var orders []models.Order
	if err := r.apply(s.db.WithContext(ctx), "order_date").Select("status").Find(&orders).Error; err != nil {
		return nil, err
	}
	out.Orders.Placed = int64(len(orders))
	for _, o := range orders {
		switch o.Status {
		case models.OrderStatusCompleted:
			out.Orders.Success++
		case models.OrderStatusNew, models.OrderStatusPendingPayment:
			out.Orders.NeedsAction++
		}
	}

	var payments []models.Payment
	if err := r.apply(s.db.WithContext(ctx), "payment_date").Select("status").Find(&payments).Error; err != nil {
		return nil, err
	}
	out.Bills.Placed = int64(len(payments))
	for _, p := range payments {
		switch p.Status {
		case models.PaymentStatusPaid:
			out.Bills.Success++
		case models.PaymentStatusNew:
			out.Bills.NeedsAction++
		}
	}
	return out, nil
}

// RevenueSeries sums paid payments per day of payment date.
func (s *StatsService) RevenueSeries(ctx context.Context, r DateRange) ([]SeriesPoint, error) {
	var payments []models.Payment
	err := r.apply(s.db.WithContext(ctx), "payment_date").
		Select("amount", "payment_date").
		Where("status = ?", models.PaymentStatusPaid).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}

	buckets := map[string]decimal.Decimal{}
	for _, p := range payments {
		day := p.PaymentDate.UTC().Format("2006-01-02")
		buckets[day] = buckets[day].Add(p.Amount)
	}
	return sortedSeries(buckets), nil
}

// OrderSeries counts orders per day of order date.
func (s *StatsService) OrderSeries(ctx context.Context, r DateRange) ([]SeriesPoint, error) {
	var orders []models.Order
	if err := r.apply(s.db.WithContext(ctx), "order_date").Select("order_date").Find(&orders).Error; err != nil {
		return nil, err
	}

	buckets := map[string]decimal.Decimal{}
	for _, o := range orders {
		day := o.OrderDate.UTC().Format("2006-01-02")
		buckets[day] = buckets[day].Add(decimal.NewFromInt(1))
	}
	return sortedSeries(buckets), nil
}

func (s *StatsService) completedRevenue(ctx context.Context, r DateRange) (decimal.Decimal, error) {
	var orders []models.Order
	err := r.apply(s.db.WithContext(ctx), "order_date").
		Select("subtotal", "total").
		Where("status = ?", models.OrderStatusCompleted).
		Find(&orders).Error
	if err != nil {
		return decimal.Zero, err
	}

	sum := decimal.Zero
	for _, o := range orders {
		sum = sum.Add(o.PayableAmount())
	}
	return sum, nil
}

func sortedSeries(buckets map[string]decimal.Decimal) []SeriesPoint {
	points := make([]SeriesPoint, 0, len(buckets))
	for day, v := range buckets {
		points = append(points, SeriesPoint{Date: day, Value: v})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}
