package mapping

import (
	"fmt"

	"github.com/FACorreiaa/fiat-funding-tracker/internal/domain/import/parser"
)

// Bucket is the direction a distinct kind value is classified into
type Bucket string

const (
	BucketIgnore   Bucket = "ignore"
	BucketDeposit  Bucket = "deposit"
	BucketWithdraw Bucket = "withdraw"
)

// Valid reports whether b is a known bucket
func (b Bucket) Valid() bool {
	return b == BucketIgnore || b == BucketDeposit || b == BucketWithdraw
}

// opposite returns the bucket that excludes b, or "" for ignore
func (b Bucket) opposite() Bucket {
	switch b {
	case BucketDeposit:
		return BucketWithdraw
	case BucketWithdraw:
		return BucketDeposit
	}
	return ""
}

// KindMapping maps each distinct kind value to its bucket
type KindMapping map[string]Bucket

// Classifier derives the distinct values of the kind column and keeps one
// bucket per value. A value is never deposit and withdraw at once.
type Classifier struct {
	values  []string
	buckets KindMapping
	engine  *KeywordEngine
}

// NewClassifier creates an empty classifier. engine may be nil, which disables
// suggestions.
func NewClassifier(engine *KeywordEngine) *Classifier {
	return &Classifier{
		buckets: make(KindMapping),
		engine:  engine,
	}
}

// Recompute replaces the distinct values with those found under kindHeader,
// in first-seen order. Missing and blank cells are excluded. Every bucket is
// reset to ignore.
func (c *Classifier) Recompute(rows []parser.RawRow, kindHeader string) []string {
	c.values = nil
	c.buckets = make(KindMapping)

	if kindHeader == "" {
		return nil
	}

	for _, row := range rows {
		v, ok := row.Value(kindHeader)
		if !ok {
			continue
		}
		if _, seen := c.buckets[v]; seen {
			continue
		}
		c.values = append(c.values, v)
		c.buckets[v] = BucketIgnore
	}
	return c.Values()
}

// Reset forgets every value and assignment
func (c *Classifier) Reset() {
	c.values = nil
	c.buckets = make(KindMapping)
}

// Values returns the distinct values in first-seen order
func (c *Classifier) Values() []string {
	return append([]string(nil), c.values...)
}

// Bucket returns the bucket of value. Unknown values are ignored.
func (c *Classifier) Bucket(value string) Bucket {
	if b, ok := c.buckets[value]; ok {
		return b
	}
	return BucketIgnore
}

// Assign moves value into bucket. Assigning deposit to a withdraw value, or
// the reverse, fails with ErrBucketConflict and changes nothing; the value
// must be set to ignore first.
func (c *Classifier) Assign(value string, bucket Bucket) error {
	if !bucket.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidBucket, bucket)
	}
	current, ok := c.buckets[value]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownValue, value)
	}
	if opp := bucket.opposite(); opp != "" && current == opp {
		return fmt.Errorf("%w: %q is %s", ErrBucketConflict, value, current)
	}

	c.buckets[value] = bucket
	return nil
}

// Mapping returns a copy of the current assignments
func (c *Classifier) Mapping() KindMapping {
	out := make(KindMapping, len(c.buckets))
	for k, v := range c.buckets {
		out[k] = v
	}
	return out
}

// Assigned counts values in deposit or withdraw
func (c *Classifier) Assigned() int {
	n := 0
	for _, b := range c.buckets {
		if b != BucketIgnore {
			n++
		}
	}
	return n
}

// Suggest proposes a bucket for each value still in ignore, using the keyword
// engine. Values with no or ambiguous hints are left out.
func (c *Classifier) Suggest() KindMapping {
	out := make(KindMapping)
	if c.engine == nil {
		return out
	}
	for _, v := range c.values {
		if c.buckets[v] != BucketIgnore {
			continue
		}
		if b, ok := c.engine.Match(v); ok {
			out[v] = b
		}
	}
	return out
}

// ApplySuggestions assigns every suggestion through Assign and returns how
// many were applied.
func (c *Classifier) ApplySuggestions() int {
	suggestions := c.Suggest()
	applied := 0
	for _, v := range c.values {
		b, ok := suggestions[v]
		if !ok {
			continue
		}
		if err := c.Assign(v, b); err == nil {
			applied++
		}
	}
	return applied
}
