package models

// Transaction kinds as stored in ledger rows.
const (
	KindBuy     = "buy"
	KindRecycle = "recycle"
)

// Transaction is one append-only ledger entry. Entries are never mutated or
// deleted; the dashboard shows them newest first.
type Transaction struct {
	// ID is the unique identifier for the entry (UUID format).
	ID string

	// UserID references the owning user's ID.
	UserID string

	// Kind is KindBuy or KindRecycle.
	Kind string

	// ItemName is the purchased item's name. Set only for buy entries and
	// fixed at purchase time, so later price changes never rewrite history.
	ItemName string

	// PointsChange is the signed balance delta: negative for buy, positive
	// for recycle, never zero.
	PointsChange int64

	// CreatedAt is the Unix timestamp in nanoseconds when the entry was
	// recorded.
	CreatedAt int64
}
