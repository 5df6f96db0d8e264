package models

// CreditPackage describes a purchasable bundle of credits. The catalog is
// static and never mutated at runtime.
type CreditPackage struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Credits int64            `json:"credits"`
	Prices  map[string]int64 `json:"prices"` // currency code -> amount in minor units
}

// Price returns the package price in the given currency, falling back to USD.
func (p *CreditPackage) Price(currency string) (int64, string) {
	if amount, ok := p.Prices[currency]; ok {
		return amount, currency
	}
	return p.Prices["USD"], "USD"
}

var packages = []CreditPackage{
	{
		ID:      "starter",
		Name:    "Starter Pack",
		Credits: 5,
		Prices:  map[string]int64{"USD": 999, "ARS": 999000, "BRL": 4990},
	},
	{
		ID:      "standard",
		Name:    "Standard Pack",
		Credits: 15,
		Prices:  map[string]int64{"USD": 2499, "ARS": 2499000, "BRL": 12490},
	},
	{
		ID:      "pro",
		Name:    "Pro Pack",
		Credits: 40,
		Prices:  map[string]int64{"USD": 5499, "ARS": 5499000, "BRL": 27490},
	},
}

// Packages returns the full catalog.
func Packages() []CreditPackage {
	return packages
}

// PackageByID looks up a package by its catalog id.
func PackageByID(id string) (*CreditPackage, bool) {
	for i := range packages {
		if packages[i].ID == id {
			return &packages[i], true
		}
	}
	return nil, false
}
