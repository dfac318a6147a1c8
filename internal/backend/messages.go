package backend

import (
	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/fiat"
	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/fiatramp"
)

// GetAllCurrenciesRequest is empty
type GetAllCurrenciesRequest struct{}

// GetAllCurrenciesResponse lists every fiat the backend knows
type GetAllCurrenciesResponse struct {
	Currencies []fiat.Fiat `json:"currencies"`
}

// CreateFiatRampsBulkRequest carries the whole batch of an import
type CreateFiatRampsBulkRequest struct {
	Ramps []fiatramp.CreateFiatRamp `json:"ramps"`
}

// CreateFiatRampsBulkResponse reports how many ramps were stored
type CreateFiatRampsBulkResponse struct {
	Count int `json:"count"`
}

// SubscribeBulkProgressRequest names the event channel to follow
type SubscribeBulkProgressRequest struct {
	Event string `json:"event"`
}
