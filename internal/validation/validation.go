// Package validation enforces the submission schema: enumerated fields,
// non-empty selections and regex-matched contact fields. The wizard uses the
// same predicates so both sides agree on what a valid contact looks like.
package validation

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/Nomankaif/debtprotection-quiz/internal/debtrange"
	"github.com/Nomankaif/debtprotection-quiz/internal/models"
)

const maxNameLength = 100

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[A-Za-z]{2,24}$`)
	zipPattern    = regexp.MustCompile(`^[0-9]{5}$`)
	digitsPattern = regexp.MustCompile(`^[0-9]+$`)
)

var disposableDomains = map[string]struct{}{
	"mailinator.com":    {},
	"yopmail.com":       {},
	"guerrillamail.com": {},
	"10minutemail.com":  {},
	"tempmail.com":      {},
	"tempmailo.com":     {},
	"discard.email":     {},
	"sharklasers.com":   {},
	"trashmail.com":     {},
	"fakeinbox.com":     {},
	"getnada.com":       {},
	"inboxbear.com":     {},
	"mintemail.com":     {},
	"moakt.com":         {},
	"maildrop.cc":       {},
	"throwawaymail.com": {},
	"mytemp.email":      {},
	"spambog.com":       {},
	"mail7.io":          {},
	"fakemail.com":      {},
}

// ValidEmail reports whether email is syntactically acceptable.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// IsDisposable reports whether email belongs to a temporary-mailbox provider.
func IsDisposable(email string) bool {
	_, domain, ok := strings.Cut(email, "@")
	if !ok {
		return false
	}
	_, found := disposableDomains[strings.ToLower(domain)]
	return found
}

// ValidZipcode reports whether zip is a 5-digit US ZIP.
func ValidZipcode(zip string) bool {
	return zipPattern.MatchString(zip)
}

// PhoneDigits returns the national number length for a dialing code. Unknown
// codes fall back to 10 digits.
func PhoneDigits(countryCode string) int {
	if c, ok := models.CountryByCode(countryCode); ok {
		return c.Digits
	}
	return 10
}

// ValidPhone reports whether phone is all digits with the length expected
// for countryCode.
func ValidPhone(countryCode, phone string) bool {
	return digitsPattern.MatchString(phone) && len(phone) == PhoneDigits(countryCode)
}

// FieldError describes why a single field was rejected.
type FieldError struct {
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// Errors maps field names to their validation failure.
type Errors map[string]FieldError

func (e Errors) Error() string {
	fields := e.Fields()
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e[f].Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields returns the rejected field names in sorted order.
func (e Errors) Fields() []string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func (e Errors) add(field, msg string, value any) {
	if _, exists := e[field]; exists {
		return
	}
	e[field] = FieldError{Message: msg, Value: value}
}

// Options tunes schema strictness.
type Options struct {
	// StrictConsent requires option == true.
	StrictConsent bool
}

// Submission checks a normalized submission against the schema. It returns
// nil or an Errors value listing every rejected field.
func Submission(sub *models.Submission, opts Options) error {
	errs := Errors{}

	switch {
	case sub.DebtAmount == "":
		errs.add("debtAmount", "Debt amount is required.", nil)
	default:
		if _, ok := debtrange.ByKey(sub.DebtAmount); !ok {
			errs.add("debtAmount", enumMessage(sub.DebtAmount, "debtAmount"), sub.DebtAmount)
		}
	}

	checkSelection(errs, "assets", sub.Assets, models.AssetOptions, "At least one asset option must be selected.", true)
	checkSelection(errs, "struggles", sub.Struggles, models.StruggleOptions, "", false)
	checkSelection(errs, "debtTypes", sub.DebtTypes, models.DebtTypeOptions, "At least one debt type must be selected.", true)

	if sub.EmploymentStatus != "" && !slices.Contains(models.EmploymentStatusOptions, sub.EmploymentStatus) {
		errs.add("employmentStatus", enumMessage(sub.EmploymentStatus, "employmentStatus"), sub.EmploymentStatus)
	}

	switch {
	case sub.Zipcode == "":
		errs.add("zipcode", "Zip code is required.", nil)
	case !ValidZipcode(sub.Zipcode):
		errs.add("zipcode", "Please fill a valid 5-digit zip code.", sub.Zipcode)
	}

	switch {
	case sub.CountryCode == "":
		errs.add("countryCode", "Country code is required.", nil)
	default:
		if _, ok := models.CountryByCode(sub.CountryCode); !ok {
			errs.add("countryCode", enumMessage(sub.CountryCode, "countryCode"), sub.CountryCode)
		}
	}

	switch {
	case sub.Phone == "":
		errs.add("phone", "Phone number is required.", nil)
	case !ValidPhone(sub.CountryCode, sub.Phone):
		errs.add("phone", "Please fill a valid phone number.", sub.Phone)
	}

	checkName(errs, "firstName", "First name", sub.FirstName)
	checkName(errs, "lastName", "Last name", sub.LastName)

	switch {
	case sub.Email == "":
		errs.add("email", "Email is required.", nil)
	case !ValidEmail(sub.Email):
		errs.add("email", "Please fill a valid email address.", sub.Email)
	case IsDisposable(sub.Email):
		errs.add("email", "Please use a real email (no disposable providers).", sub.Email)
	}

	if opts.StrictConsent && !sub.Option {
		errs.add("option", "User must agree to marketing communications.", sub.Option)
	}

	if sub.SubmissionMetadata.DwellTimeMs < 0 {
		errs.add("submissionMetadata.dwellTimeMs", "Dwell time cannot be negative.", sub.SubmissionMetadata.DwellTimeMs)
	}
	if sub.SubmissionMetadata.InteractionCount < 0 {
		errs.add("submissionMetadata.interactionCount", "Interaction count cannot be negative.", sub.SubmissionMetadata.InteractionCount)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func checkSelection(errs Errors, field string, values, options []string, emptyMsg string, required bool) {
	if len(values) == 0 {
		if required {
			errs.add(field, emptyMsg, nil)
		}
		return
	}
	for i, v := range values {
		if !slices.Contains(options, v) {
			errs.add(fmt.Sprintf("%s.%d", field, i), enumMessage(v, fmt.Sprintf("%s.%d", field, i)), v)
		}
	}
}

func checkName(errs Errors, field, label, value string) {
	switch {
	case value == "":
		errs.add(field, label+" is required.", nil)
	case len(value) > maxNameLength:
		errs.add(field, fmt.Sprintf("%s must be at most %d characters.", label, maxNameLength), value)
	}
}

func enumMessage(value, path string) string {
	return fmt.Sprintf("`%s` is not a valid enum value for path `%s`.", value, path)
}
