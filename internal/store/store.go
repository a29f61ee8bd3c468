// Package store provides persistence for actions and tick history.
package store

import (
	"treasury-agent/internal/models"
)

// DataStore defines the persistence interface for the controller's
// audit trail. Writes are best-effort from the caller's point of view:
// a failed save never fails a tick.
type DataStore interface {
	SaveAction(entry models.ActionLogEntry) error
	RecentActions(borrowerID string, limit int) ([]models.ActionLogEntry, error)

	SaveTick(record models.TickRecord) error
	LastTick(borrowerID string) (*models.TickRecord, error)
	RecentTicks(borrowerID string, limit int) ([]models.TickRecord, error)

	Close() error
}
