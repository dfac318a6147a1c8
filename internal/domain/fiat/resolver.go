package fiat

import (
	"fmt"
	"strings"
)

// Placeholder is displayed when a row has no currency at all
const Placeholder = "-"

// Resolution is the outcome of resolving one currency cell
type Resolution struct {
	FiatID int64  `json:"fiat_id"`
	Symbol string `json:"symbol"`
	Valid  bool   `json:"is_valid"`
}

// Resolver maps currency tokens to catalog fiats, falling back to a default
// fiat for rows without a currency.
type Resolver struct {
	catalog   *Catalog
	defaultID int64
}

// NewResolver creates a resolver. defaultFiatID 0 means no default.
func NewResolver(catalog *Catalog, defaultFiatID int64) *Resolver {
	if catalog == nil {
		catalog = NewCatalog(nil)
	}
	return &Resolver{catalog: catalog, defaultID: defaultFiatID}
}

// Resolve resolves raw, the currency cell of a row (empty when the column is
// unmapped or the cell is blank).
//
// A token matching a fiat symbol or name exactly is valid. An unmatched token
// keeps its text for display, with FiatID 0. An empty token takes the default
// fiat when one is set and known.
func (r *Resolver) Resolve(raw string) Resolution {
	token := strings.TrimSpace(raw)

	if token != "" {
		if f, ok := r.catalog.Match(token); ok {
			return Resolution{FiatID: f.ID, Symbol: f.Symbol, Valid: true}
		}
		return Resolution{Symbol: token}
	}

	if r.defaultID != 0 {
		if f, ok := r.catalog.ByID(r.defaultID); ok {
			return Resolution{FiatID: f.ID, Symbol: f.Symbol, Valid: true}
		}
	}
	return Resolution{Symbol: Placeholder}
}

// ResolveID resolves an explicit fiat choice, as made in the correction picker
func (r *Resolver) ResolveID(id int64) (Resolution, error) {
	f, ok := r.catalog.ByID(id)
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %d", ErrUnknownFiat, id)
	}
	return Resolution{FiatID: f.ID, Symbol: f.Symbol, Valid: true}, nil
}

// Catalog returns the catalog resolved against
func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

// DefaultID returns the default fiat id, 0 when unset
func (r *Resolver) DefaultID() int64 {
	return r.defaultID
}
