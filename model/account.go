package model

import "time"

// Account is a resolved money account. Balance is maintained by the
// committer in signed minor units.
type Account struct {
	ID        int64     `json:"-"`
	AccountID string    `json:"account_id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency,omitempty"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}
