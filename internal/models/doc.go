// Package models defines the core domain models for EcoPoints.
//
// The application tracks three kinds of records:
//   - User: a registered recycler identified by a 9-digit external ID
//   - Item: a catalog entry purchasable with points
//   - Transaction: one append-only ledger entry (a purchase or a recycle)
//
// A user's Points field is denormalized for cheap reads; the store keeps it
// equal to the sum of the user's transaction deltas inside every commit.
package models
