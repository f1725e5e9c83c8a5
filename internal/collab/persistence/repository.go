package persistence

import (
	"context"
	"errors"
	"time"

	errx "github.com/Finmate-core-poc/server/internal/core/error"
	"gorm.io/gorm"
)

// CategoryTotal is one slice of a spending breakdown.
type CategoryTotal struct {
	Category string
	Total    float64
}

func (l *Ledger) CreateExpense(ctx context.Context, e *Expense) error {
	if e.SpentAt.IsZero() {
		e.SpentAt = time.Now().UTC()
	}
	if err := l.db.WithContext(ctx).Create(e).Error; err != nil {
		return errx.WrapStorage(err)
	}
	return nil
}

// ListExpenses returns expenses in [from, to), newest first, optionally
// filtered by category. A zero to means no upper bound.
func (l *Ledger) ListExpenses(ctx context.Context, from, to time.Time, category string, limit int) ([]Expense, error) {
	q := l.db.WithContext(ctx).Model(&Expense{})
	if !from.IsZero() {
		q = q.Where("spent_at >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("spent_at < ?", to)
	}
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var out []Expense
	if err := q.Order("spent_at DESC").Find(&out).Error; err != nil {
		return nil, errx.WrapStorage(err)
	}
	return out, nil
}

// SpendingByCategory aggregates expense totals per category over [from, to).
func (l *Ledger) SpendingByCategory(ctx context.Context, from, to time.Time) ([]CategoryTotal, error) {
	var out []CategoryTotal
	q := l.db.WithContext(ctx).Model(&Expense{}).
		Select("category, SUM(amount) AS total").
		Group("category").
		Order("total DESC")
	if !from.IsZero() {
		q = q.Where("spent_at >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("spent_at < ?", to)
	}
	if err := q.Scan(&out).Error; err != nil {
		return nil, errx.WrapStorage(err)
	}
	return out, nil
}

func (l *Ledger) CreateIncome(ctx context.Context, in *Income) error {
	if in.ReceivedAt.IsZero() {
		in.ReceivedAt = time.Now().UTC()
	}
	if err := l.db.WithContext(ctx).Create(in).Error; err != nil {
		return errx.WrapStorage(err)
	}
	return nil
}

// Balance returns total income minus total expenses across all time.
func (l *Ledger) Balance(ctx context.Context) (float64, error) {
	var income, spent float64
	if err := l.db.WithContext(ctx).Model(&Income{}).
		Select("COALESCE(SUM(amount), 0)").Scan(&income).Error; err != nil {
		return 0, errx.WrapStorage(err)
	}
	if err := l.db.WithContext(ctx).Model(&Expense{}).
		Select("COALESCE(SUM(amount), 0)").Scan(&spent).Error; err != nil {
		return 0, errx.WrapStorage(err)
	}
	return income - spent, nil
}

func (l *Ledger) CreateSubscription(ctx context.Context, s *Subscription) error {
	if err := l.db.WithContext(ctx).Create(s).Error; err != nil {
		return errx.WrapStorage(err)
	}
	return nil
}

func (l *Ledger) ListSubscriptions(ctx context.Context, activeOnly bool) ([]Subscription, error) {
	q := l.db.WithContext(ctx).Model(&Subscription{})
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var out []Subscription
	if err := q.Order("name ASC").Find(&out).Error; err != nil {
		return nil, errx.WrapStorage(err)
	}
	return out, nil
}

// CancelSubscription deactivates a subscription by name. Returns the number
// of rows affected so callers can distinguish "not found".
func (l *Ledger) CancelSubscription(ctx context.Context, name string) (int64, error) {
	res := l.db.WithContext(ctx).Model(&Subscription{}).
		Where("name = ? AND active = ?", name, true).
		Update("active", false)
	if res.Error != nil {
		return 0, errx.WrapStorage(res.Error)
	}
	return res.RowsAffected, nil
}

func (l *Ledger) CreateBill(ctx context.Context, b *Bill) error {
	if err := l.db.WithContext(ctx).Create(b).Error; err != nil {
		return errx.WrapStorage(err)
	}
	return nil
}

// ListUpcomingBills returns unpaid bills due before horizon, soonest first.
func (l *Ledger) ListUpcomingBills(ctx context.Context, horizon time.Time) ([]Bill, error) {
	var out []Bill
	q := l.db.WithContext(ctx).Model(&Bill{}).Where("paid = ?", false)
	if !horizon.IsZero() {
		q = q.Where("due_at < ?", horizon)
	}
	if err := q.Order("due_at ASC").Find(&out).Error; err != nil {
		return nil, errx.WrapStorage(err)
	}
	return out, nil
}

// MarkBillPaid marks the earliest unpaid bill with the given name as paid.
func (l *Ledger) MarkBillPaid(ctx context.Context, name string) (int64, error) {
	var bill Bill
	err := l.db.WithContext(ctx).
		Where("name = ? AND paid = ?", name, false).
		Order("due_at ASC").
		First(&bill).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, errx.WrapStorage(err)
	}
	res := l.db.WithContext(ctx).Model(&Bill{}).
		Where("id = ?", bill.ID).
		Update("paid", true)
	if res.Error != nil {
		return 0, errx.WrapStorage(res.Error)
	}
	return res.RowsAffected, nil
}

func (l *Ledger) CreateGoal(ctx context.Context, g *Goal) error {
	if err := l.db.WithContext(ctx).Create(g).Error; err != nil {
		return errx.WrapStorage(err)
	}
	return nil
}

func (l *Ledger) ListGoals(ctx context.Context) ([]Goal, error) {
	var out []Goal
	if err := l.db.WithContext(ctx).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, errx.WrapStorage(err)
	}
	return out, nil
}

// AddToGoal increments a goal's saved amount. Returns rows affected.
func (l *Ledger) AddToGoal(ctx context.Context, name string, amount float64) (int64, error) {
	res := l.db.WithContext(ctx).Model(&Goal{}).
		Where("name = ?", name).
		Update("saved_amount", gorm.Expr("saved_amount + ?", amount))
	if res.Error != nil {
		return 0, errx.WrapStorage(res.Error)
	}
	return res.RowsAffected, nil
}
