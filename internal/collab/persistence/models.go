package persistence

import "time"

// Expense is one recorded spend. Amounts are stored in the user's account
// currency as a plain float; this is a single-user assistant, not a ledger
// of record.
type Expense struct {
	ID       uint64    `gorm:"primaryKey"`
	Amount   float64   `gorm:"not null"`
	Currency string    `gorm:"size:3;not null"`
	Category string    `gorm:"size:64;not null;index:idx_expenses_category_time,priority:1"`
	Merchant string    `gorm:"size:128;index"`
	Note     string    `gorm:"type:text"`
	SpentAt  time.Time `gorm:"not null;index:idx_expenses_category_time,priority:2"`
	// CreatedAt is the write time, distinct from SpentAt.
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
}

// Income is one recorded inflow (salary, refund, transfer in).
type Income struct {
	ID         uint64    `gorm:"primaryKey"`
	Amount     float64   `gorm:"not null"`
	Currency   string    `gorm:"size:3;not null"`
	Source     string    `gorm:"size:128;not null;index"`
	Note       string    `gorm:"type:text"`
	ReceivedAt time.Time `gorm:"not null;index"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime"`
}

// Subscription is a recurring charge the user tracks.
type Subscription struct {
	ID     uint64  `gorm:"primaryKey"`
	Name   string  `gorm:"size:128;not null;uniqueIndex"`
	Amount float64 `gorm:"not null"`
	// Cadence is the billing interval: monthly or yearly.
	Cadence      string    `gorm:"size:16;not null"`
	Currency     string    `gorm:"size:3;not null"`
	NextChargeAt time.Time `gorm:"index"`
	Active       bool      `gorm:"not null;default:true;index"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime"`
}

// Bill is a one-off or recurring payable with a due date.
type Bill struct {
	ID        uint64    `gorm:"primaryKey"`
	Name      string    `gorm:"size:128;not null;index"`
	Amount    float64   `gorm:"not null"`
	Currency  string    `gorm:"size:3;not null"`
	DueAt     time.Time `gorm:"not null;index"`
	Paid      bool      `gorm:"not null;default:false;index"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
}

// Goal is a savings target with optional deadline.
type Goal struct {
	ID           uint64     `gorm:"primaryKey"`
	Name         string     `gorm:"size:128;not null;uniqueIndex"`
	TargetAmount float64    `gorm:"not null"`
	SavedAmount  float64    `gorm:"not null;default:0"`
	Currency     string     `gorm:"size:3;not null"`
	Deadline     *time.Time `gorm:"index"`
	CreatedAt    time.Time  `gorm:"not null;autoCreateTime"`
}
