package service

import (
	"fmt"
	"html"
	"slices"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/Nomankaif/debtprotection-quiz/internal/debtrange"
	"github.com/Nomankaif/debtprotection-quiz/internal/models"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// maxSanitizeRounds bounds the decode-and-strip loop in plainText.
const maxSanitizeRounds = 4

// plainText strips markup from free-text input. Entities are decoded before
// the policy runs so encoded tags cannot slip through, and the policy's own
// escapes are decoded afterwards so "O'Brien" survives unchanged. The loop
// stops once a round leaves the value as it was.
func plainText(raw string) string {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	cur := strings.TrimSpace(raw)
	for range maxSanitizeRounds {
		if cur == "" {
			return ""
		}
		next := strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(unescapeAll(cur))))
		if next == cur {
			return cur
		}
		cur = next
	}
	// Still changing after every round: drop angle brackets outright.
	return strings.TrimSpace(angleBrackets.Replace(cur))
}

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// unescapeAll decodes entities until nothing changes, so double-encoded
// input such as "&amp;lt;" reaches the policy as markup.
func unescapeAll(s string) string {
	for range maxSanitizeRounds {
		next := html.UnescapeString(s)
		if next == s {
			return s
		}
		s = next
	}
	return s
}

// normalize turns a request body into the canonical submission: bucket key
// for the debt amount, defaulted selections, trimmed and sanitized text.
func normalize(req *models.SubmitRequest) *models.Submission {
	sub := &models.Submission{
		DebtAmount:       debtAmountKey(req.DebtAmount),
		Assets:           selection(req.Assets, models.DefaultAsset),
		EmploymentStatus: strings.TrimSpace(req.EmploymentStatus),
		Struggles:        expandStruggles(req.Struggles),
		DebtTypes:        selection(req.DebtTypes, models.DefaultDebtType),
		Zipcode:          strings.TrimSpace(string(req.Zipcode)),
		Phone:            strings.TrimSpace(string(req.Phone)),
		CountryCode:      strings.TrimSpace(req.CountryCode),
		FirstName:        plainText(req.FirstName),
		LastName:         plainText(req.LastName),
		Email:            strings.ToLower(strings.TrimSpace(req.Email)),
		Option:           req.Option,
		SubmissionMetadata: models.Metadata{
			PageURL:          plainText(req.SubmissionMetadata.PageURL),
			Referrer:         plainText(req.SubmissionMetadata.Referrer),
			UserAgent:        plainText(req.SubmissionMetadata.UserAgent),
			DwellTimeMs:      req.SubmissionMetadata.DwellTimeMs,
			InteractionCount: req.SubmissionMetadata.InteractionCount,
		},
	}
	if sub.CountryCode == "" {
		sub.CountryCode = models.DefaultCountryCode
	}
	return sub
}

// debtAmountKey converts numbers and labels to a bucket key. Values that do
// not resolve are kept verbatim so validation reports them.
func debtAmountKey(v any) string {
	if key, ok := debtrange.Key(v); ok {
		return key
	}
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		return fmt.Sprint(t)
	}
}

func selection(values []string, fallback string) []string {
	out := dedupe(values)
	if len(out) == 0 {
		return []string{fallback}
	}
	return out
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// expandStruggles replaces "all" with every specific struggle. An empty
// list stays empty since the field is optional.
func expandStruggles(values []string) []string {
	out := dedupe(values)
	if len(out) == 0 {
		return nil
	}
	if !slices.Contains(out, models.AllStruggles) {
		return out
	}
	out = out[:0]
	for _, s := range models.StruggleOptions {
		if s != models.AllStruggles {
			out = append(out, s)
		}
	}
	return out
}
