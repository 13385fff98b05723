package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TrxTypeDeposit    = "deposit"
	TrxTypeWithdrawal = "withdrawal"
	TrxTypeBet        = "bet"
	TrxTypePayout     = "payout"
	TrxTypeRefund     = "refund"

	TrxStatusPending   = "pending"
	TrxStatusCompleted = "completed"
	TrxStatusFailed    = "failed"
	TrxStatusCancelled = "cancelled"
)

// PaymentTransaction is the append-mostly ledger; only Status moves after
// insert (pending -> completed | failed). ProviderRef carries the external
// processor reference and its unique index makes external crediting
// idempotent: a checkout session id is recorded, and therefore credited, at
// most once.
type PaymentTransaction struct {
	gorm.Model

	AccountID     uint    `gorm:"index" json:"account_id"`
	MethodID      *uint   `gorm:"index" json:"method_id,omitempty"`
	Type          string  `gorm:"size:16;index" json:"type"`
	Status        string  `gorm:"size:16;index" json:"status"`
	Amount        float64 `json:"amount"`
	BalanceBefore float64 `json:"balance_before"`
	BalanceAfter  float64 `json:"balance_after"`
	RefID         string  `gorm:"size:36;index" json:"ref_id"`
	Provider      string  `gorm:"size:32" json:"provider,omitempty"`
	ProviderRef   *string `gorm:"size:64;uniqueIndex" json:"provider_ref,omitempty"`
	Note          string  `gorm:"size:255" json:"note,omitempty"`

	Metadata datatypes.JSON `json:"metadata,omitempty"`
}

// PaymentMethod rows are never hard-deleted once transactions reference them;
// removal flips IsActive off.
type PaymentMethod struct {
	gorm.Model

	AccountID uint   `gorm:"index" json:"account_id"`
	Provider  string `gorm:"size:32" json:"provider"`
	MaskedRef string `gorm:"size:64" json:"masked_ref"`
	IsActive  bool   `gorm:"default:true" json:"is_active"`
}
