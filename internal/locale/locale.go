// Package locale provides locale-aware string ordering for display names.
package locale

import (
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Collator orders strings by the root collation, falling back to byte
// order for strings the collation considers equal. Safe for concurrent use.
type Collator struct {
	mu sync.Mutex
	c  *collate.Collator
}

// New returns a Collator for the root locale.
func New() *Collator {
	return &Collator{c: collate.New(language.Und)}
}

// Compare returns -1, 0 or +1.
func (c *Collator) Compare(a, b string) int {
	c.mu.Lock()
	r := c.c.CompareString(a, b)
	c.mu.Unlock()
	if r != 0 {
		return r
	}
	return strings.Compare(a, b)
}

var defaultCollator = New()

// Compare orders a and b with a shared root-locale collator.
func Compare(a, b string) int {
	return defaultCollator.Compare(a, b)
}
