package models

// Item is a catalog entry purchasable with points.
// Items are seeded at startup and immutable afterward; seeding never
// overwrites the price of an existing entry.
type Item struct {
	// ID is the unique identifier for the item (UUID format).
	ID string

	// Name is the display name of the item (unique).
	Name string

	// PricePoints is the cost of the item in points (always positive).
	PricePoints int64
}
