// Package backend is the transport for the funding backend command contract:
// currency lookup, bulk ramp creation and the bulk progress event stream.
// Messages are plain JSON over the Connect protocol.
package backend

import (
	"encoding/json"
	"fmt"
)

// Procedure paths of the command contract
const (
	ServiceName = "fiatramp.v1.FiatRampService"

	GetAllCurrenciesProcedure      = "/" + ServiceName + "/GetAllCurrencies"
	CreateFiatRampsBulkProcedure   = "/" + ServiceName + "/CreateFiatRampsBulk"
	SubscribeBulkProgressProcedure = "/" + ServiceName + "/SubscribeBulkProgress"
)

// jsonCodec encodes plain Go structs with encoding/json. It replaces
// Connect's protobuf-only JSON codec under the same name.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}
