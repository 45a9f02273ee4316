package models

import (
	"strconv"
	"time"
)

// Collection-wide limits. MaxSupply caps issuance for the lifetime of the
// collection; MaxMintPerTx bounds any single issuance call, public or
// bootstrap.
const (
	MaxSupply    uint64 = 6666
	MaxMintPerTx uint64 = 10
)

// Address identifies a wallet. Treated as an opaque string; the settlement
// layer owns its format.
type Address string

// UnitID is the sequential identifier of one issued unit. IDs start at zero,
// are assigned contiguously, and are never reused.
type UnitID uint64

// CollectionState is the singleton aggregate behind every operation. It is
// created once with zero issuance and persists for the service's lifetime.
type CollectionState struct {
	TotalIssued    uint64
	SaleActive     bool
	UnitPrice      uint64
	BaseURI        string
	ProvenanceHash string

	// ContractBalance is the total funds currently held. EarmarkedBalance is
	// the portion reserved for the designated fund destination; the remainder
	// is administrator-withdrawable. EarmarkedBalance <= ContractBalance
	// always.
	ContractBalance  uint64
	EarmarkedBalance uint64
}

// WithdrawableBalance is the administrator's share of held funds.
func (s CollectionState) WithdrawableBalance() uint64 {
	return s.ContractBalance - s.EarmarkedBalance
}

// BootstrapOpen reports whether the one-time team bootstrap path is still
// available. It closes permanently the instant anything is issued.
func (s CollectionState) BootstrapOpen() bool {
	return s.TotalIssued == 0
}

// TokenURI derives the metadata location for an issued unit.
func TokenURI(baseURI string, id UnitID) string {
	return baseURI + strconv.FormatUint(uint64(id), 10)
}

// MintReceipt is returned to the caller after a committed mint.
type MintReceipt struct {
	ReceiptID string    `json:"receipt_id"`
	Caller    Address   `json:"caller"`
	UnitIDs   []UnitID  `json:"unit_ids"`
	Payment   uint64    `json:"payment"`
	Verified  bool      `json:"verified"`
	MintedAt  time.Time `json:"minted_at"`
}

// MintedEvent is published to the event stream for each mint by a verified
// caller. UnitIDs are in assignment order.
type MintedEvent struct {
	ReceiptID string    `json:"receipt_id"`
	Caller    Address   `json:"caller"`
	UnitIDs   []UnitID  `json:"unit_ids"`
	Payment   uint64    `json:"payment"`
	MintedAt  time.Time `json:"minted_at"`
	RequestID string    `json:"request_id,omitempty"`
}
