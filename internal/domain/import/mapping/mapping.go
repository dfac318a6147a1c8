// Package mapping holds the user's column assignments and the per-value
// classification of the kind column into deposit, withdraw or ignore.
package mapping

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownField is returned for a field outside date, amount, currency and kind
	ErrUnknownField = errors.New("unknown mapping field")
	// ErrBucketConflict is returned when a value already holds the opposing bucket
	ErrBucketConflict = errors.New("value is already assigned to the opposing bucket")
	// ErrUnknownValue is returned when assigning a value not present in the kind column
	ErrUnknownValue = errors.New("value is not present in the kind column")
	// ErrInvalidBucket is returned for a bucket other than deposit, withdraw or ignore
	ErrInvalidBucket = errors.New("invalid bucket")
)

// Field is a semantic slot a spreadsheet column can be assigned to
type Field string

const (
	FieldDate     Field = "date"
	FieldAmount   Field = "amount"
	FieldCurrency Field = "currency"
	FieldKind     Field = "kind"
)

// Fields lists every mappable field in display order
var Fields = []Field{FieldDate, FieldAmount, FieldCurrency, FieldKind}

// Valid reports whether f is a known field
func (f Field) Valid() bool {
	switch f {
	case FieldDate, FieldAmount, FieldCurrency, FieldKind:
		return true
	}
	return false
}

// Required reports whether preview needs f mapped. Currency is optional.
func (f Field) Required() bool {
	return f == FieldDate || f == FieldAmount || f == FieldKind
}

// ColumnMapping assigns at most one header to each field. Empty means unmapped.
type ColumnMapping struct {
	Date     string `json:"date,omitempty"`
	Amount   string `json:"amount,omitempty"`
	Currency string `json:"currency,omitempty"`
	Kind     string `json:"kind,omitempty"`
}

// Get returns the header assigned to f
func (m ColumnMapping) Get(f Field) string {
	switch f {
	case FieldDate:
		return m.Date
	case FieldAmount:
		return m.Amount
	case FieldCurrency:
		return m.Currency
	case FieldKind:
		return m.Kind
	}
	return ""
}

// Missing returns the required fields that have no header, in display order
func (m ColumnMapping) Missing() []Field {
	var missing []Field
	for _, f := range Fields {
		if f.Required() && m.Get(f) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// Mapper holds the current ColumnMapping for an import session
type Mapper struct {
	mapping ColumnMapping
}

// NewMapper creates a mapper with every field unmapped
func NewMapper() *Mapper {
	return &Mapper{}
}

// Update assigns header to field, replacing any previous header. An empty
// header unmaps the field. changed reports whether the assignment differs
// from the previous one.
func (m *Mapper) Update(field Field, header string) (changed bool, err error) {
	var slot *string
	switch field {
	case FieldDate:
		slot = &m.mapping.Date
	case FieldAmount:
		slot = &m.mapping.Amount
	case FieldCurrency:
		slot = &m.mapping.Currency
	case FieldKind:
		slot = &m.mapping.Kind
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	if *slot == header {
		return false, nil
	}
	*slot = header
	return true, nil
}

// Apply replaces the whole mapping, as when accepting suggested columns
func (m *Mapper) Apply(mapping ColumnMapping) {
	m.mapping = mapping
}

// Mapping returns the current assignment
func (m *Mapper) Mapping() ColumnMapping {
	return m.mapping
}

// Reset unmaps every field
func (m *Mapper) Reset() {
	m.mapping = ColumnMapping{}
}
