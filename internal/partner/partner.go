// Package partner relays stored submissions to third-party lead APIs.
package partner

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Nomankaif/debtprotection-quiz/internal/debtrange"
	"github.com/Nomankaif/debtprotection-quiz/internal/models"
)

// Partner describes one delivery target. Map and Headers are pure
// functions of the submission.
type Partner struct {
	Name    string
	URL     string
	Enabled bool
	// Mock skips the network and reports a simulated success.
	Mock    bool
	Timeout time.Duration
	Headers func(sub *models.Submission) map[string]string
	Map     func(sub *models.Submission) map[string]any
}

// Credentials are the environment-sourced partner secrets.
type Credentials struct {
	LeadMirrorAPIKey string
	DAPSubID         string
	DAPSubID2        string
}

const (
	LeadMirror    = "LeadMirror"
	DAPerformance = "DAPerformance"
)

func jsonHeaders(extra map[string]string) func(*models.Submission) map[string]string {
	return func(*models.Submission) map[string]string {
		h := map[string]string{"Content-Type": "application/json"}
		for k, v := range extra {
			if v != "" {
				h[k] = v
			}
		}
		return h
	}
}

// Defaults returns the built-in partner list. DAPerformance ships disabled.
func Defaults(c Credentials) []Partner {
	return []Partner{
		{
			Name:    LeadMirror,
			URL:     "https://mp9ba419c2cf2f062247.free.beeceptor.com",
			Enabled: true,
			Headers: jsonHeaders(map[string]string{"X-Api-Key": c.LeadMirrorAPIKey}),
			Map:     canonicalPayload,
		},
		{
			Name:    DAPerformance,
			URL:     "https://api.daperformancegroup.com/ndr/42424/",
			Enabled: false,
			Headers: jsonHeaders(nil),
			Map: func(sub *models.Submission) map[string]any {
				return map[string]any{
					"firstname": sub.FirstName,
					"lastname":  sub.LastName,
					"email":     sub.Email,
					"phone":     E164(sub.CountryCode, sub.Phone),
					"zip":       sub.Zipcode,
					"debt":      debtrange.Label(sub.DebtAmount),
					"subid":     c.DAPSubID,
					"subid2":    c.DAPSubID2,
				}
			},
		},
	}
}

func canonicalPayload(sub *models.Submission) map[string]any {
	return map[string]any{
		"firstName":          sub.FirstName,
		"lastName":           sub.LastName,
		"email":              sub.Email,
		"phone":              sub.Phone,
		"zipCode":            sub.Zipcode,
		"countryCode":        sub.CountryCode,
		"debtAmount":         sub.DebtAmount,
		"debtRange":          debtrange.Label(sub.DebtAmount),
		"assets":             sub.Assets,
		"employmentStatus":   sub.EmploymentStatus,
		"struggles":          sub.Struggles,
		"debtTypes":          sub.DebtTypes,
		"option":             sub.Option,
		"submissionMetadata": sub.SubmissionMetadata,
	}
}

// E164 joins a dialing code and national number, e.g. "+12125550100".
func E164(countryCode, phone string) string {
	if phone == "" {
		return ""
	}
	return "+" + strings.TrimPrefix(countryCode, "+") + phone
}

// Override adjusts a built-in partner from the overrides file. Nil fields
// keep the default.
type Override struct {
	Name    string         `yaml:"name"`
	URL     *string        `yaml:"url"`
	Enabled *bool          `yaml:"enabled"`
	Mock    *bool          `yaml:"mock"`
	Timeout *time.Duration `yaml:"timeout"`
}

type overridesFile struct {
	Partners []Override `yaml:"partners"`
}

// ParseOverrides decodes a YAML document of the form
//
//	partners:
//	  - name: LeadMirror
//	    mock: true
//	    timeout: 3s
func ParseOverrides(data []byte) ([]Override, error) {
	var f overridesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse partner overrides: %w", err)
	}
	return f.Partners, nil
}

// LoadOverrides reads overrides from path.
func LoadOverrides(path string) ([]Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read partner overrides: %w", err)
	}
	return ParseOverrides(data)
}

// Apply returns a copy of partners with overrides applied. Naming a partner
// that does not exist is an error.
func Apply(partners []Partner, overrides []Override) ([]Partner, error) {
	out := make([]Partner, len(partners))
	copy(out, partners)
	for _, o := range overrides {
		i := indexOf(out, o.Name)
		if i < 0 {
			return nil, fmt.Errorf("partner override: unknown partner %q", o.Name)
		}
		if o.URL != nil {
			out[i].URL = *o.URL
		}
		if o.Enabled != nil {
			out[i].Enabled = *o.Enabled
		}
		if o.Mock != nil {
			out[i].Mock = *o.Mock
		}
		if o.Timeout != nil {
			out[i].Timeout = *o.Timeout
		}
	}
	return out, nil
}

func indexOf(partners []Partner, name string) int {
	for i, p := range partners {
		if strings.EqualFold(p.Name, name) {
			return i
		}
	}
	return -1
}
