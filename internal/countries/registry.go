package countries

import (
	"strings"

	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
)

// SettlementAccount is a platform-owned account branches remit dues to.
type SettlementAccount struct {
	Bank          string
	AccountNumber string
	Holder        string
}

// Config is the read-only payment configuration for one country.
type Config struct {
	Code               string
	Currency           string
	PaymentMethods     []string
	SettlementAccounts []SettlementAccount
}

// Registry resolves country payment configuration by normalized country code.
// The data is owned by platform operations and consumed read-only here.
type Registry struct {
	byCode map[string]Config
}

// NewRegistry builds a registry from explicit configs.
func NewRegistry(configs []Config) *Registry {
	byCode := make(map[string]Config, len(configs))
	for _, cfg := range configs {
		byCode[Normalize(cfg.Code)] = cfg
	}
	return &Registry{byCode: byCode}
}

// Default returns the registry with the launch markets.
func Default() *Registry {
	return NewRegistry([]Config{
		{
			Code:     "AE",
			Currency: "AED",
			PaymentMethods: []string{
				"cash_on_delivery", "bank_transfer", "card",
			},
			SettlementAccounts: []SettlementAccount{
				{Bank: "Emirates NBD", AccountNumber: "1014-2208-991", Holder: "Souqline FZ LLC"},
			},
		},
		{
			Code:     "SA",
			Currency: "SAR",
			PaymentMethods: []string{
				"cash_on_delivery", "bank_transfer", "mada",
			},
			SettlementAccounts: []SettlementAccount{
				{Bank: "Al Rajhi", AccountNumber: "SA03-8000-4016", Holder: "Souqline KSA"},
			},
		},
		{
			Code:     "EG",
			Currency: "EGP",
			PaymentMethods: []string{
				"cash_on_delivery", "bank_transfer", "wallet",
			},
			SettlementAccounts: []SettlementAccount{
				{Bank: "CIB", AccountNumber: "100042277319", Holder: "Souqline Egypt"},
			},
		},
	})
}

// Normalize canonicalizes a country code for lookups.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Lookup returns the configuration for a country code.
func (r *Registry) Lookup(code string) (Config, error) {
	cfg, ok := r.byCode[Normalize(code)]
	if !ok {
		return Config{}, pkgerrors.New(pkgerrors.CodeValidation, "unsupported country")
	}
	return cfg, nil
}

// Supports reports whether the country is configured at all.
func (r *Registry) Supports(code string) bool {
	_, ok := r.byCode[Normalize(code)]
	return ok
}

// SupportsPaymentMethod reports whether the method is available in a country.
func (r *Registry) SupportsPaymentMethod(code, method string) bool {
	cfg, ok := r.byCode[Normalize(code)]
	if !ok {
		return false
	}
	for _, candidate := range cfg.PaymentMethods {
		if candidate == method {
			return true
		}
	}
	return false
}
