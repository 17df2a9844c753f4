// Package seed generates realistic, schema-valid quiz submissions for
// loading a store.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/Nomankaif/debtprotection-quiz/internal/debtrange"
	"github.com/Nomankaif/debtprotection-quiz/internal/models"
	"github.com/Nomankaif/debtprotection-quiz/internal/zipcode"
)

var (
	firstNames = []string{"Alice", "Bob", "Charlie", "Diana", "Eve", "Frank", "Grace", "Hank", "Ivy", "Jack", "Karen", "Leo", "Mona", "Nick", "Olivia", "Paul", "Quinn", "Rosa", "Sam", "Tina"}
	lastNames  = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez", "Wilson", "Anderson", "Taylor", "Thomas", "Moore", "Jackson", "Martin", "Lee", "Harris", "Clark"}
	referrers  = []string{"", "https://www.google.com/", "https://www.facebook.com/", "https://www.bing.com/"}
)

// Generator produces submissions from a seeded source so runs repeat.
type Generator struct {
	rng   *rand.Rand
	zips  []string
	start time.Time
}

func NewGenerator(seed int64, zips *zipcode.Table, start time.Time) *Generator {
	var codes []string
	for _, p := range zips.Places() {
		codes = append(codes, p.Zip)
	}
	return &Generator{rng: rand.New(rand.NewSource(seed)), zips: codes, start: start}
}

func (g *Generator) pick(values []string) string {
	return values[g.rng.Intn(len(values))]
}

// subset returns 1..len(values) distinct values, keeping option order.
func (g *Generator) subset(values []string, exclude ...string) []string {
	var pool []string
	for _, v := range values {
		skip := false
		for _, e := range exclude {
			if v == e {
				skip = true
			}
		}
		if !skip {
			pool = append(pool, v)
		}
	}
	var out []string
	for _, v := range pool {
		if g.rng.Intn(3) == 0 {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		out = []string{g.pick(pool)}
	}
	return out
}

// Next returns submission i.
func (g *Generator) Next(i int) *models.Submission {
	first := g.pick(firstNames)
	last := g.pick(lastNames)
	country := models.Countries[g.rng.Intn(len(models.Countries))]

	phone := make([]byte, country.Digits)
	phone[0] = byte('2' + g.rng.Intn(8))
	for j := 1; j < len(phone); j++ {
		phone[j] = byte('0' + g.rng.Intn(10))
	}

	assets := []string{models.DefaultAsset}
	if g.rng.Intn(2) == 0 {
		assets = g.subset(models.AssetOptions, models.DefaultAsset)
	}
	var struggles []string
	if g.rng.Intn(2) == 0 {
		struggles = g.subset(models.StruggleOptions, models.AllStruggles)
	}

	return &models.Submission{
		DebtAmount:       debtrange.Buckets[g.rng.Intn(len(debtrange.Buckets))].Key,
		Assets:           assets,
		EmploymentStatus: g.pick(models.EmploymentStatusOptions),
		Struggles:        struggles,
		DebtTypes:        g.subset(models.DebtTypeOptions),
		Zipcode:          g.pick(g.zips),
		Phone:            string(phone),
		CountryCode:      country.Code,
		FirstName:        first,
		LastName:         last,
		Email:            fmt.Sprintf("%s.%s.%d@example.com", strings.ToLower(first), strings.ToLower(last), i),
		Option:           true,
		SubmissionMetadata: models.Metadata{
			PageURL:          "https://quiz.example.com/",
			Referrer:         g.pick(referrers),
			UserAgent:        "quizseed",
			DwellTimeMs:      int64(2500 + g.rng.Intn(600000)),
			InteractionCount: 2 + g.rng.Intn(40),
		},
		CreatedAt: g.start.Add(time.Duration(i) * time.Second).UTC().Format(time.RFC3339),
	}
}
