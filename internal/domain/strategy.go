package domain

import (
	"fmt"
	"strings"
)

// Strategy selects how records are placed on shards.
type Strategy int

const (
	StrategyGeographicHash Strategy = iota
	StrategyHashOnly
	StrategyGeographicOnly
)

func (s Strategy) String() string {
	switch s {
	case StrategyGeographicHash:
		return "geographic_hash"
	case StrategyHashOnly:
		return "hash_only"
	case StrategyGeographicOnly:
		return "geographic_only"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy maps a configured strategy name to a Strategy.
func ParseStrategy(name string) (Strategy, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "geographic_hash":
		return StrategyGeographicHash, true
	case "hash_only":
		return StrategyHashOnly, true
	case "geographic_only":
		return StrategyGeographicOnly, true
	default:
		return 0, false
	}
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
