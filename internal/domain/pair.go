// Package domain defines the core data structures shared by the
// paper-trading desk and the chat synchronization engine.
package domain

import "fmt"

// Pair trading pair of base asset and quote currency.
type Pair struct {
	// Base asset symbol, e.g. BTC.
	Base string
	// Quote currency symbol, e.g. USDT.
	Quote string
}

// String returns the string representation.
func (p *Pair) String() string {
	return fmt.Sprintf("%s_%s", p.Base, p.Quote)
}

// Symbol returns the concatenated symbol representation.
func (p *Pair) Symbol() string {
	return fmt.Sprintf("%s%s", p.Base, p.Quote)
}
