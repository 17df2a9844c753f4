package models

// Fixed option vocabularies for the enumerated submission fields.
var (
	AssetOptions = []string{"house", "car", "land-property", "investments", "none"}

	EmploymentStatusOptions = []string{
		"full-time", "part-time", "self-employed", "unemployed", "retired", "student",
	}

	StruggleOptions = []string{
		"high-interest", "min-payments", "multiple-cards", "medical-debt", "all",
	}

	DebtTypeOptions = []string{
		"credit-cards", "personal-loans", "student-loans", "medical-bills",
		"auto-loans", "taxes", "other",
	}
)

// Sentinels used when an optional selection arrives empty.
const (
	DefaultAsset    = "none"
	DefaultDebtType = "other"
	AllStruggles    = "all"
)

// Country is a supported dialing code and the national number length it
// expects.
type Country struct {
	Code   string
	Name   string
	Format string
	Digits int
}

// Countries lists the dialing codes offered by the quiz. The first entry is
// the default.
var Countries = []Country{
	{Code: "+1", Name: "US/Canada", Format: "(XXX) XXX-XXXX", Digits: 10},
	{Code: "+91", Name: "India", Format: "XXXXX XXXXX", Digits: 10},
	{Code: "+44", Name: "UK", Format: "XXXX XXXXXX", Digits: 10},
	{Code: "+61", Name: "Australia", Format: "XXX XXX XXX", Digits: 9},
	{Code: "+49", Name: "Germany", Format: "XXX XXXXXXX", Digits: 10},
	{Code: "+33", Name: "France", Format: "X XX XX XX XX", Digits: 10},
}

// DefaultCountryCode is preselected in the wizard.
const DefaultCountryCode = "+1"

// CountryByCode finds a supported dialing code.
func CountryByCode(code string) (Country, bool) {
	for _, c := range Countries {
		if c.Code == code {
			return c, true
		}
	}
	return Country{}, false
}
