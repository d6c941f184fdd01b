package models

import (
	"time"
)

// ClaimShape distinguishes the two authorization shapes the attester signs
type ClaimShape string

const (
	ClaimShapeAttestation ClaimShape = "attestation" // nonce-scoped, revocation-linked
	ClaimShapeVoucher     ClaimShape = "voucher"     // day-scoped, amount-bearing
)

// RevocationRecord is the persisted fact that a wallet revoked a
// token/spender approval. Created once by the client reporting a completed
// on-chain revocation, never updated. The eligibility gate looks it up by
// the lowercase (wallet, token, spender) triple.
type RevocationRecord struct {
	ID          uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	ChainID     int    `json:"chain_id" gorm:"index"`
	Wallet      string `json:"wallet" gorm:"size:42;not null;index:idx_revocation_triple,priority:1"`
	Token       string `json:"token" gorm:"size:42;not null;index:idx_revocation_triple,priority:2"`
	Spender     string `json:"spender" gorm:"size:42;not null;index:idx_revocation_triple,priority:3"`
	FID         uint64 `json:"fid" gorm:"not null;index"`
	TxHash      string `json:"tx_hash" gorm:"size:66"`
	BlockNumber uint64 `json:"block_number"`

	CreatedAt time.Time `json:"created_at"`
}

// IssuedClaim is an audit row written after every signature handed out.
// It is never consulted before signing; replay protection stays with the
// on-chain verifier's nonce/day bookkeeping.
type IssuedClaim struct {
	ID        uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	Shape     ClaimShape `json:"shape" gorm:"size:16;not null;index"`
	FID       uint64     `json:"fid" gorm:"not null;index"`
	Wallet    string     `json:"wallet" gorm:"size:42;index"`
	ChainID   int        `json:"chain_id"`
	Token     string     `json:"token" gorm:"size:42"`
	Spender   string     `json:"spender" gorm:"size:42"`
	Nonce     string     `json:"nonce" gorm:"size:80"`  // decimal uint256, attestation shape
	Day       uint64     `json:"day"`                   // UTC day bucket, voucher shape
	AmountWei string     `json:"amount_wei" gorm:"size:80"`
	Deadline  int64      `json:"deadline" gorm:"not null"`
	TxHash    string     `json:"tx_hash" gorm:"size:66"` // set when the backend relayed

	CreatedAt time.Time `json:"created_at"`
}

// GlobalConfig key/value system configuration stored in the database;
// overrides the YAML value when present
type GlobalConfig struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	ConfigKey   string    `json:"config_key" gorm:"size:64;uniqueIndex;not null"`
	ConfigValue string    `json:"config_value" gorm:"size:256"`
	Description string    `json:"description" gorm:"size:256"`
	UpdatedBy   string    `json:"updated_by" gorm:"size:64"`
	UpdatedAt   time.Time `json:"updated_at"`
}
