package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleRegular = "regular"
	RolePremium = "premium"
	RoleVIP     = "vip"
	RoleAdmin   = "admin"
)

// Account balance is mutated only through AccountService.UpdateBalance and is
// never negative after a committed transaction.
type Account struct {
	gorm.Model

	Code         string     `gorm:"uniqueIndex;size:32" json:"code"`
	Email        string     `gorm:"uniqueIndex;size:128" json:"email"`
	PasswordHash string     `gorm:"size:128" json:"-"`
	Role         string     `gorm:"size:16;default:regular" json:"role"`
	Balance      float64    `json:"balance"`
	FailedLogins int        `json:"-"`
	LockedUntil  *time.Time `json:"-"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`

	Bets         []Bet                `gorm:"foreignKey:AccountID" json:"-"`
	Transactions []PaymentTransaction `gorm:"foreignKey:AccountID" json:"-"`
}

// Locked reports whether the lockout window is still open.
func (a *Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}
