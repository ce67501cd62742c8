package provider

import "fmt"

// Build constructs the implementation for a descriptor by provider name.
func Build(desc *Descriptor) (Provider, error) {
	switch desc.Name {
	case "yahoo":
		return NewYahoo(desc), nil
	case "alphavantage":
		return NewAlphaVantage(desc), nil
	case "finnhub":
		return NewFinnhub(desc), nil
	case "fred":
		return NewFRED(desc), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", desc.Name)
	}
}
