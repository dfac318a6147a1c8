package mapping

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// Keyword is a hint that a kind value containing Pattern belongs in Bucket
type Keyword struct {
	Pattern string
	Bucket  Bucket
	// Exact keywords match the whole value only. Short tokens like "in" need it.
	Exact bool
}

// DefaultKeywords covers the labels exchanges and banks commonly export
var DefaultKeywords = []Keyword{
	{Pattern: "in", Bucket: BucketDeposit, Exact: true},
	{Pattern: "out", Bucket: BucketWithdraw, Exact: true},
	{Pattern: "+", Bucket: BucketDeposit, Exact: true},
	{Pattern: "-", Bucket: BucketWithdraw, Exact: true},

	{Pattern: "deposit", Bucket: BucketDeposit},
	{Pattern: "credit", Bucket: BucketDeposit},
	{Pattern: "top up", Bucket: BucketDeposit},
	{Pattern: "topup", Bucket: BucketDeposit},
	{Pattern: "funding", Bucket: BucketDeposit},
	{Pattern: "incoming", Bucket: BucketDeposit},
	{Pattern: "received", Bucket: BucketDeposit},
	{Pattern: "depósito", Bucket: BucketDeposit},
	{Pattern: "deposito", Bucket: BucketDeposit},
	{Pattern: "entrada", Bucket: BucketDeposit},
	{Pattern: "crédito", Bucket: BucketDeposit},
	{Pattern: "credito", Bucket: BucketDeposit},
	{Pattern: "ingreso", Bucket: BucketDeposit},

	{Pattern: "withdraw", Bucket: BucketWithdraw},
	{Pattern: "debit", Bucket: BucketWithdraw},
	{Pattern: "payout", Bucket: BucketWithdraw},
	{Pattern: "cash out", Bucket: BucketWithdraw},
	{Pattern: "cashout", Bucket: BucketWithdraw},
	{Pattern: "outgoing", Bucket: BucketWithdraw},
	{Pattern: "levantamento", Bucket: BucketWithdraw},
	{Pattern: "saída", Bucket: BucketWithdraw},
	{Pattern: "saida", Bucket: BucketWithdraw},
	{Pattern: "retiro", Bucket: BucketWithdraw},
	{Pattern: "débito", Bucket: BucketWithdraw},
	{Pattern: "debito", Bucket: BucketWithdraw},
}

// KeywordEngine matches kind values against many keywords in a single pass
// using the Aho-Corasick algorithm.
type KeywordEngine struct {
	matcher  *ahocorasick.Matcher
	patterns []string
	buckets  []Bucket
	exact    map[string]Bucket
	mu       sync.RWMutex
}

// NewKeywordEngine builds an engine from keywords
func NewKeywordEngine(keywords []Keyword) *KeywordEngine {
	e := &KeywordEngine{}
	e.Build(keywords)
	return e
}

// Build replaces the keyword set. Patterns are matched case-insensitively.
func (e *KeywordEngine) Build(keywords []Keyword) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.patterns = nil
	e.buckets = nil
	e.exact = make(map[string]Bucket)
	e.matcher = nil

	for _, k := range keywords {
		p := strings.ToLower(strings.TrimSpace(k.Pattern))
		if p == "" || k.Bucket == BucketIgnore || !k.Bucket.Valid() {
			continue
		}
		if k.Exact {
			e.exact[p] = k.Bucket
			continue
		}
		e.patterns = append(e.patterns, p)
		e.buckets = append(e.buckets, k.Bucket)
	}

	if len(e.patterns) > 0 {
		e.matcher = ahocorasick.NewStringMatcher(e.patterns)
	}
}

// Match returns the bucket hinted by value. ok is false when nothing matches
// or when keywords from both buckets match.
func (e *KeywordEngine) Match(value string) (Bucket, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "", false
	}

	if b, ok := e.exact[normalized]; ok {
		return b, true
	}
	if e.matcher == nil {
		return "", false
	}

	var found Bucket
	for _, idx := range e.matcher.Match([]byte(normalized)) {
		if idx < 0 || idx >= len(e.buckets) {
			continue
		}
		b := e.buckets[idx]
		if found != "" && found != b {
			return "", false
		}
		found = b
	}
	return found, found != ""
}
