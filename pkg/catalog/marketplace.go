package catalog

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Marketplace describes one regional catalog endpoint.
type Marketplace struct {
	// Host is the API hostname for the region.
	Host string `toml:"host"`

	// Region is the deployment region the API is signed against.
	Region string `toml:"region"`

	// Currency is the ISO 4217 currency of the marketplace.
	Currency string `toml:"currency"`

	// Domain is the storefront domain used for affiliate and detail URLs.
	Domain string `toml:"domain"`
}

// builtinMarketplaces covers the launched regions. Additional regions can
// be supplied through a TOML file (see LoadMarketplaces) or Config.Marketplaces.
var builtinMarketplaces = map[string]Marketplace{
	"US": {Host: "api.primecart.com", Region: "us-east-1", Currency: "USD", Domain: "primecart.com"},
	"IN": {Host: "api.primecart.in", Region: "eu-west-1", Currency: "INR", Domain: "primecart.in"},
	"UK": {Host: "api.primecart.co.uk", Region: "eu-west-1", Currency: "GBP", Domain: "primecart.co.uk"},
	"JP": {Host: "api.primecart.co.jp", Region: "us-west-2", Currency: "JPY", Domain: "primecart.co.jp"},
}

// Marketplaces returns a copy of the builtin marketplace table.
func Marketplaces() map[string]Marketplace {
	out := make(map[string]Marketplace, len(builtinMarketplaces))
	for code, m := range builtinMarketplaces {
		out[code] = m
	}
	return out
}

// LoadMarketplaces reads marketplace definitions from a TOML file and merges
// them over the builtin table. File entries may add regions or override
// builtin ones; codes are case-insensitive.
//
// File format:
//
//	[DE]
//	host = "api.primecart.de"
//	region = "eu-central-1"
//	currency = "EUR"
//	domain = "primecart.de"
func LoadMarketplaces(path string) (map[string]Marketplace, error) {
	var fromFile map[string]Marketplace
	if _, err := toml.DecodeFile(path, &fromFile); err != nil {
		return nil, fmt.Errorf("load marketplaces: %w", err)
	}

	merged := Marketplaces()
	for code, m := range fromFile {
		if m.Host == "" {
			return nil, fmt.Errorf("marketplace %s: host is required", code)
		}
		if m.Domain == "" {
			return nil, fmt.Errorf("marketplace %s: domain is required", code)
		}
		merged[strings.ToUpper(code)] = m
	}

	return merged, nil
}
