// Package fiatramp defines the funding events sent to the backend and the
// progress reported while they are stored.
package fiatramp

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Kind is the direction of a ramp
type Kind string

const (
	KindDeposit  Kind = "deposit"
	KindWithdraw Kind = "withdraw"
)

// DefaultExchange is recorded when an import does not name an exchange
const DefaultExchange = "Imported"

// BulkProgressEvent names the progress channel emitted during bulk creation
const BulkProgressEvent = "fiat-ramp-bulk-progress"

// CreateFiatRamp is one record of the create_fiat_ramps_bulk command
type CreateFiatRamp struct {
	FiatID      int64           `json:"fiat_id"`
	FiatAmount  decimal.Decimal `json:"fiat_amount"`
	RampDate    string          `json:"ramp_date"`
	ViaExchange string          `json:"via_exchange"`
	Kind        Kind            `json:"kind"`
}

// Progress is emitted by the backend while a bulk create runs
type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// Percent returns completion in the 0-100 range
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	pct := float64(p.Processed) / float64(p.Total) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

type createFiatRampJSON struct {
	FiatID      int64       `json:"fiat_id"`
	FiatAmount  json.Number `json:"fiat_amount"`
	RampDate    string      `json:"ramp_date"`
	ViaExchange string      `json:"via_exchange"`
	Kind        Kind        `json:"kind"`
}

// MarshalJSON writes fiat_amount as a JSON number
func (r CreateFiatRamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(createFiatRampJSON{
		FiatID:      r.FiatID,
		FiatAmount:  json.Number(r.FiatAmount.String()),
		RampDate:    r.RampDate,
		ViaExchange: r.ViaExchange,
		Kind:        r.Kind,
	})
}

// UnmarshalJSON accepts fiat_amount as a number or a string
func (r *CreateFiatRamp) UnmarshalJSON(data []byte) error {
	var raw struct {
		FiatID      int64           `json:"fiat_id"`
		FiatAmount  decimal.Decimal `json:"fiat_amount"`
		RampDate    string          `json:"ramp_date"`
		ViaExchange string          `json:"via_exchange"`
		Kind        Kind            `json:"kind"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = CreateFiatRamp(raw)
	return nil
}
