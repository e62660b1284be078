package phonepe

import "fmt"

// Environment is one fixed set of PhonePe endpoints. Selection happens once
// at startup; there is no per-request switching.
type Environment struct {
	Name                string
	Description         string
	TokenURL            string
	OrderURL            string
	StatusBaseURL       string
	LegacyStatusBaseURL string
}

var environments = map[string]Environment{
	"sandbox": {
		Name:                "sandbox",
		Description:         "PhonePe pre-production sandbox",
		TokenURL:            "https://api-preprod.phonepe.com/apis/pg-sandbox/v1/oauth/token",
		OrderURL:            "https://api-preprod.phonepe.com/apis/pg-sandbox/checkout/v2/pay",
		StatusBaseURL:       "https://api-preprod.phonepe.com/apis/pg-sandbox/checkout/v2/order",
		LegacyStatusBaseURL: "https://api-preprod.phonepe.com/apis/pg-sandbox/pg/v1/status",
	},
	"production": {
		Name:                "production",
		Description:         "PhonePe production gateway",
		TokenURL:            "https://api.phonepe.com/apis/identity-manager/v1/oauth/token",
		OrderURL:            "https://api.phonepe.com/apis/pg/checkout/v2/pay",
		StatusBaseURL:       "https://api.phonepe.com/apis/pg/checkout/v2/order",
		LegacyStatusBaseURL: "https://api.phonepe.com/apis/hermes/pg/v1/status",
	},
}

// EnvironmentFor resolves a configured environment name.
func EnvironmentFor(name string) (Environment, error) {
	env, ok := environments[name]
	if !ok {
		return Environment{}, fmt.Errorf("unknown psp environment %q", name)
	}
	return env, nil
}
