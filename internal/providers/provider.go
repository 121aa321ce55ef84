package providers

import (
	"context"
	"errors"

	"tradeboard/internal/model"
)

var ErrNoRecords = errors.New("providers: no records found")

// Provider yields the complete shipment dataset. Callers treat the result as
// a full snapshot, never as an increment.
type Provider interface {
	Name() string
	FetchShipments(ctx context.Context) ([]model.Shipment, error)
}
