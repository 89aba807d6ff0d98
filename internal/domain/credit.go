package domain

// CreditPackage is a fixed-size purchase offered in the store.
type CreditPackage struct {
	Credits  int  `json:"credits"`
	PriceUSD int  `json:"price_usd"`
	Popular  bool `json:"popular"`
}

var creditPackages = []CreditPackage{
	{Credits: 50, PriceUSD: 5},
	{Credits: 120, PriceUSD: 10, Popular: true},
	{Credits: 300, PriceUSD: 20},
}

// CreditPackages lists the store offering.
func CreditPackages() []CreditPackage {
	out := make([]CreditPackage, len(creditPackages))
	copy(out, creditPackages)
	return out
}

// FindPackage looks up a package by its credit amount.
func FindPackage(credits int) (CreditPackage, bool) {
	for _, p := range creditPackages {
		if p.Credits == credits {
			return p, true
		}
	}
	return CreditPackage{}, false
}
