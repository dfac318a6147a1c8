// Package fiat holds the currency reference data served by the backend and
// resolves free-text currency tokens against it.
package fiat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// ErrUnknownFiat is returned for an id that is not in the catalog
var ErrUnknownFiat = errors.New("unknown fiat")

// Fiat is a currency known to the backend
type Fiat struct {
	ID     int64  `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Source loads the currency list
type Source interface {
	GetAllCurrencies(ctx context.Context) ([]Fiat, error)
}

// Catalog is a read-only list of fiats indexed by id. Order is preserved
// because the first fiat matching a token wins.
type Catalog struct {
	fiats []Fiat
	byID  map[int64]int
}

// NewCatalog builds a catalog from fiats
func NewCatalog(fiats []Fiat) *Catalog {
	c := &Catalog{
		fiats: append([]Fiat(nil), fiats...),
		byID:  make(map[int64]int, len(fiats)),
	}
	for i, f := range c.fiats {
		if _, dup := c.byID[f.ID]; !dup {
			c.byID[f.ID] = i
		}
	}
	return c
}

// LoadCatalog fetches the currency list from src
func LoadCatalog(ctx context.Context, src Source) (*Catalog, error) {
	fiats, err := src.GetAllCurrencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load currencies: %w", err)
	}
	return NewCatalog(fiats), nil
}

// All returns every fiat in catalog order
func (c *Catalog) All() []Fiat {
	return append([]Fiat(nil), c.fiats...)
}

// Len returns the number of fiats
func (c *Catalog) Len() int {
	return len(c.fiats)
}

// ByID looks up a fiat by id
func (c *Catalog) ByID(id int64) (Fiat, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Fiat{}, false
	}
	return c.fiats[i], true
}

// Match returns the first fiat whose symbol or name equals token exactly.
// Case is significant.
func (c *Catalog) Match(token string) (Fiat, bool) {
	if token == "" {
		return Fiat{}, false
	}
	for _, f := range c.fiats {
		if f.Symbol == token || f.Name == token {
			return f, true
		}
	}
	return Fiat{}, false
}

// Suggest ranks fiats whose symbol or name fuzzily contains token, closest
// first. It feeds the correction picker and never resolves a row by itself.
func (c *Catalog) Suggest(token string, limit int) []Fiat {
	token = strings.TrimSpace(token)
	if token == "" || len(c.fiats) == 0 {
		return nil
	}

	targets := make([]string, 0, len(c.fiats)*2)
	owners := make([]int, 0, len(c.fiats)*2)
	for i, f := range c.fiats {
		targets = append(targets, f.Symbol, f.Name)
		owners = append(owners, i, i)
	}

	ranks := fuzzy.RankFindFold(token, targets)
	sort.Stable(ranks)

	seen := make(map[int]bool)
	var out []Fiat
	for _, r := range ranks {
		i := owners[r.OriginalIndex]
		if seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, c.fiats[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
