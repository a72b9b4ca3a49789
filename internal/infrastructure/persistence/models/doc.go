// Package models holds the GORM models of the ledger tables and their
// conversions to and from domain aggregates. Domain types carry no ORM tags.
//
// Amounts are stored as decimal(18,4) so that a change of the configured
// rounding precision never truncates history.
package models
