// Package quiz implements the five-step debt quiz wizard: step validation,
// navigation rules, ZIP resolution, the anti-bot submit gate and the
// outbound payload.
package quiz

import (
	"strings"

	"github.com/Nomankaif/debtprotection-quiz/internal/debtrange"
	"github.com/Nomankaif/debtprotection-quiz/internal/models"
	"github.com/Nomankaif/debtprotection-quiz/internal/validation"
)

// Option is one selectable answer.
type Option struct {
	Label string
	Value string
}

// Data holds everything the user has entered so far.
type Data struct {
	DebtAmount  string
	Assets      []string
	DebtTypes   []string
	Struggles   []string
	Zipcode     string
	City        string
	State       string
	ZipResolved bool
	CountryCode string
	Phone       string
	FirstName   string
	LastName    string
	Email       string
	Option      bool
}

// Step is a wizard page. The set of implementations is closed: Dropdown,
// Checkbox, Contact and Personal.
type Step interface {
	Key() string
	Title() string
	// Validate reports whether d completes this step.
	Validate(d *Data) bool
	// ErrorMessage explains why d does not complete this step.
	ErrorMessage(d *Data) string
	sealed()
}

// Dropdown is a single-choice step.
type Dropdown struct {
	key     string
	title   string
	Options []Option
}

func (s Dropdown) Key() string   { return s.key }
func (s Dropdown) Title() string { return s.title }
func (Dropdown) sealed()         {}

func (s Dropdown) Validate(d *Data) bool {
	return d.value(s.key) != ""
}

func (s Dropdown) ErrorMessage(*Data) string {
	return "Please select a debt amount to continue."
}

// Checkbox is a multi-choice step that needs at least one selection.
type Checkbox struct {
	key      string
	title    string
	Subtitle string
	Options  []Option
}

func (s Checkbox) Key() string   { return s.key }
func (s Checkbox) Title() string { return s.title }
func (Checkbox) sealed()         {}

func (s Checkbox) Validate(d *Data) bool {
	return len(d.selection(s.key)) > 0
}

func (s Checkbox) ErrorMessage(*Data) string {
	return "Pick at least one option."
}

// Contact collects ZIP and phone. The ZIP must have been resolved to a
// city and state.
type Contact struct{}

func (Contact) Key() string   { return "contact" }
func (Contact) Title() string { return "We're almost done!" }
func (Contact) sealed()       {}

func (Contact) Validate(d *Data) bool {
	return validation.ValidZipcode(d.Zipcode) && d.ZipResolved && validation.ValidPhone(d.CountryCode, d.Phone)
}

func (Contact) ErrorMessage(d *Data) string {
	zipOK := validation.ValidZipcode(d.Zipcode)
	phoneOK := validation.ValidPhone(d.CountryCode, d.Phone)
	switch {
	case !zipOK && !phoneOK:
		return "Please enter both zip code and phone number."
	case !zipOK:
		return "Enter a valid 5-digit zip."
	case !d.ZipResolved:
		return "ZIP not found. Double-check it."
	case !phoneOK:
		return "Enter a valid phone number."
	}
	return ""
}

// Personal collects name, email and marketing consent.
type Personal struct{}

func (Personal) Key() string   { return "personalInfo" }
func (Personal) Title() string { return "You're One Click Away!" }
func (Personal) sealed()       {}

func (Personal) Validate(d *Data) bool {
	return strings.TrimSpace(d.FirstName) != "" &&
		strings.TrimSpace(d.LastName) != "" &&
		validation.ValidEmail(d.Email) &&
		!validation.IsDisposable(d.Email) &&
		d.Option
}

func (Personal) ErrorMessage(d *Data) string {
	switch {
	case strings.TrimSpace(d.FirstName) == "":
		return "Please enter your first name."
	case strings.TrimSpace(d.LastName) == "":
		return "Please enter your last name."
	case strings.TrimSpace(d.Email) == "":
		return "Please enter your email address."
	case validation.IsDisposable(d.Email):
		return "Please use a real email (no disposable providers)."
	case !validation.ValidEmail(d.Email):
		return "Enter a valid email address."
	case !d.Option:
		return "Please agree to receive marketing communications."
	}
	return ""
}

func (d *Data) value(key string) string {
	if key == "debtAmount" {
		return d.DebtAmount
	}
	return ""
}

func (d *Data) selection(key string) []string {
	switch key {
	case "assets":
		return d.Assets
	case "debtTypes":
		return d.DebtTypes
	case "struggles":
		return d.Struggles
	}
	return nil
}

func (d *Data) setSelection(key string, values []string) {
	switch key {
	case "assets":
		d.Assets = values
	case "debtTypes":
		d.DebtTypes = values
	case "struggles":
		d.Struggles = values
	}
}

var (
	assetLabels = map[string]string{
		"house":         "House",
		"car":           "Car",
		"land-property": "Land/Property",
		"investments":   "Investments (401k, stocks, retirement accounts)",
		"none":          "None of the above",
	}
	debtTypeLabels = map[string]string{
		"credit-cards":   "Credit cards",
		"personal-loans": "Personal loans",
		"student-loans":  "Student loans",
		"medical-bills":  "Medical bills",
		"auto-loans":     "Auto loans",
		"taxes":          "Taxes",
		"other":          "Other",
	}
	struggleLabels = map[string]string{
		"high-interest":  "High interest rates",
		"min-payments":   "Only making minimum payments",
		"multiple-cards": "Juggling multiple cards",
		"medical-debt":   "Medical debt",
		"all":            "All of the above",
	}
)

func options(values []string, labels map[string]string) []Option {
	out := make([]Option, 0, len(values))
	for _, v := range values {
		out = append(out, Option{Label: labels[v], Value: v})
	}
	return out
}

// DefaultSteps returns the quiz in display order.
func DefaultSteps() []Step {
	buckets := make([]Option, 0, len(debtrange.Buckets))
	for _, b := range debtrange.Buckets {
		buckets = append(buckets, Option{Label: b.Label(), Value: b.Key})
	}
	return []Step{
		Dropdown{key: "debtAmount", title: "How much debt do you owe?", Options: buckets},
		Checkbox{
			key:      "assets",
			title:    "What assets do you currently own?",
			Subtitle: "(Select all that apply)",
			Options:  options(models.AssetOptions, assetLabels),
		},
		Checkbox{
			key:      "debtTypes",
			title:    "What kind of debt do you have?",
			Subtitle: "(Select all that apply)",
			Options:  options(models.DebtTypeOptions, debtTypeLabels),
		},
		Contact{},
		Personal{},
	}
}

// StrugglesStep is the optional "what are you struggling with" page used by
// the longer form variant. Insert it with NewWizard's steps argument.
func StrugglesStep() Checkbox {
	return Checkbox{
		key:      "struggles",
		title:    "What are you struggling with?",
		Subtitle: "(Select all that apply)",
		Options:  options(models.StruggleOptions, struggleLabels),
	}
}
