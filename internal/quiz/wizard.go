package quiz

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Nomankaif/debtprotection-quiz/internal/debtrange"
	"github.com/Nomankaif/debtprotection-quiz/internal/models"
	"github.com/Nomankaif/debtprotection-quiz/internal/validation"
	"github.com/Nomankaif/debtprotection-quiz/internal/zipcode"
)

// StepError is returned when navigation or submission is refused because a
// step does not validate. Shake asks the UI to play its error cue.
type StepError struct {
	Step    int
	Message string
	Shake   bool
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d: %s", e.Step, e.Message)
}

// Submitter delivers a finished payload.
type Submitter interface {
	Submit(ctx context.Context, req models.SubmitRequest) (*models.SubmitResponse, error)
}

// Wizard is the quiz state machine. It is not safe for concurrent use.
type Wizard struct {
	steps    []Step
	current  int
	data     Data
	honeypot string
	session  *Session
	zips     *zipcode.Resolver
}

// NewWizard starts at the first step with the default country code
// preselected. Without steps it runs DefaultSteps; without a session it
// starts a fresh one now.
func NewWizard(zips *zipcode.Resolver, session *Session, steps ...Step) *Wizard {
	if len(steps) == 0 {
		steps = DefaultSteps()
	}
	if session == nil {
		session = NewSession(time.Now())
	}
	return &Wizard{
		steps:   steps,
		data:    Data{CountryCode: models.DefaultCountryCode},
		session: session,
		zips:    zips,
	}
}

func (w *Wizard) Steps() []Step     { return w.steps }
func (w *Wizard) Current() int      { return w.current }
func (w *Wizard) CurrentStep() Step { return w.steps[w.current] }
func (w *Wizard) Data() Data        { return w.data }
func (w *Wizard) Session() *Session { return w.session }

// Progress is the completion percentage shown in the progress bar.
func (w *Wizard) Progress() int {
	if len(w.steps) < 2 {
		return 0
	}
	return (w.current*100 + (len(w.steps)-1)/2) / (len(w.steps) - 1)
}

// Valid reports whether step i validates against the current data.
func (w *Wizard) Valid(i int) bool {
	if i < 0 || i >= len(w.steps) {
		return false
	}
	return w.steps[i].Validate(&w.data)
}

// Frontier is the index of the first invalid step, or the last index when
// every step validates.
func (w *Wizard) Frontier() int {
	for i := range w.steps {
		if !w.Valid(i) {
			return i
		}
	}
	return len(w.steps) - 1
}

func (w *Wizard) refuse(i int) *StepError {
	return &StepError{Step: i, Message: w.steps[i].ErrorMessage(&w.data), Shake: true}
}

// Next advances when the current step validates. On the last step it stays
// put.
func (w *Wizard) Next() error {
	if !w.Valid(w.current) {
		return w.refuse(w.current)
	}
	w.current = min(w.current+1, len(w.steps)-1)
	return nil
}

// Prev moves back one step, stopping at the first.
func (w *Wizard) Prev() {
	w.current = max(w.current-1, 0)
}

// JumpTo moves to step k. Moving backward always succeeds; moving forward
// requires every step before k to validate.
func (w *Wizard) JumpTo(k int) error {
	if k < 0 || k >= len(w.steps) {
		return fmt.Errorf("quiz: step %d out of range", k)
	}
	if k <= w.current {
		w.current = k
		return nil
	}
	if f := w.Frontier(); k > f {
		return w.refuse(f)
	}
	w.current = k
	return nil
}

// SetDebtAmount selects a debt bucket by key.
func (w *Wizard) SetDebtAmount(key string) error {
	w.session.Touch()
	if _, ok := debtrange.ByKey(key); !ok {
		return fmt.Errorf("quiz: unknown debt bucket %q", key)
	}
	w.data.DebtAmount = key
	return nil
}

// Toggle checks or unchecks value on checkbox step key. "none" excludes
// every other option; "all" stands for every other option and is kept in
// sync with them.
func (w *Wizard) Toggle(key, value string, checked bool) error {
	w.session.Touch()
	var box Checkbox
	found := false
	for _, s := range w.steps {
		if c, ok := s.(Checkbox); ok && c.Key() == key {
			box, found = c, true
			break
		}
	}
	if !found {
		return fmt.Errorf("quiz: no checkbox step %q", key)
	}
	values := make([]string, 0, len(box.Options))
	for _, o := range box.Options {
		values = append(values, o.Value)
	}
	if !slices.Contains(values, value) {
		return fmt.Errorf("quiz: %q is not an option of %s", value, key)
	}

	set := map[string]bool{}
	for _, v := range w.data.selection(key) {
		set[v] = true
	}

	switch {
	case value == models.DefaultAsset && slices.Contains(values, models.DefaultAsset):
		set = map[string]bool{}
		set[value] = checked
	case value == models.AllStruggles:
		set = map[string]bool{}
		if checked {
			for _, v := range values {
				set[v] = true
			}
		}
	default:
		set[value] = checked
		if checked {
			delete(set, models.DefaultAsset)
		}
		if slices.Contains(values, models.AllStruggles) {
			all := true
			for _, v := range values {
				if v != models.AllStruggles && !set[v] {
					all = false
				}
			}
			set[models.AllStruggles] = all
		}
	}

	selected := make([]string, 0, len(set))
	for _, v := range values {
		if set[v] {
			selected = append(selected, v)
		}
	}
	w.data.setSelection(key, selected)
	return nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SetZipcode records ZIP input, keeping at most five digits, and returns
// local prefix suggestions. A complete ZIP is resolved immediately; on
// failure the contact step stays invalid and zipcode.ErrNotFound is
// returned.
func (w *Wizard) SetZipcode(ctx context.Context, input string) ([]zipcode.Place, error) {
	w.session.Touch()
	zip := digitsOnly(input)
	if len(zip) > 5 {
		zip = zip[:5]
	}
	w.data.Zipcode = zip
	w.data.ZipResolved = false
	w.data.City, w.data.State = "", ""

	suggestions := w.zips.Suggest(zip)
	if len(zip) < 5 {
		return suggestions, nil
	}
	p, err := w.zips.Resolve(ctx, zip)
	if err != nil {
		return suggestions, err
	}
	w.data.City, w.data.State = p.City, p.State
	w.data.ZipResolved = true
	return suggestions, nil
}

// SetCountryCode selects a dialing code and trims the phone to its length.
func (w *Wizard) SetCountryCode(code string) error {
	w.session.Touch()
	if _, ok := models.CountryByCode(code); !ok {
		return fmt.Errorf("quiz: unsupported country code %q", code)
	}
	w.data.CountryCode = code
	w.data.Phone = w.trimPhone(w.data.Phone)
	return nil
}

// SetPhone keeps the digits of input up to the country's number length.
func (w *Wizard) SetPhone(input string) {
	w.session.Touch()
	w.data.Phone = w.trimPhone(digitsOnly(input))
}

func (w *Wizard) trimPhone(digits string) string {
	if n := validation.PhoneDigits(w.data.CountryCode); len(digits) > n {
		return digits[:n]
	}
	return digits
}

func (w *Wizard) SetFirstName(v string) {
	w.session.Touch()
	w.data.FirstName = v
}

func (w *Wizard) SetLastName(v string) {
	w.session.Touch()
	w.data.LastName = v
}

func (w *Wizard) SetEmail(v string) {
	w.session.Touch()
	w.data.Email = strings.TrimSpace(v)
}

// SetOption records marketing consent.
func (w *Wizard) SetOption(v bool) {
	w.session.Touch()
	w.data.Option = v
}

// SetHoneypot fills the field humans never see.
func (w *Wizard) SetHoneypot(v string) { w.honeypot = v }

// Payload builds the submission body.
func (w *Wizard) Payload(now time.Time, meta models.Metadata) models.SubmitRequest {
	assets := slices.Clone(w.data.Assets)
	if len(assets) == 0 {
		assets = []string{models.DefaultAsset}
	}
	debtTypes := slices.Clone(w.data.DebtTypes)
	if debtTypes == nil {
		debtTypes = []string{}
	}
	meta.DwellTimeMs = w.session.Dwell(now).Milliseconds()
	meta.InteractionCount = w.session.InteractionCount
	return models.SubmitRequest{
		DebtAmount:         w.data.DebtAmount,
		Assets:             assets,
		DebtTypes:          debtTypes,
		Struggles:          slices.Clone(w.data.Struggles),
		Zipcode:            models.DigitString(w.data.Zipcode),
		CountryCode:        w.data.CountryCode,
		Phone:              models.DigitString(w.data.Phone),
		FirstName:          w.data.FirstName,
		LastName:           w.data.LastName,
		Email:              w.data.Email,
		Option:             w.data.Option,
		SubmissionMetadata: meta,
	}
}

// Submit runs the step checks and the submit gate, then hands the payload to
// s. Nothing is sent when a check fails. A successful send starts the
// cooldown.
func (w *Wizard) Submit(ctx context.Context, s Submitter, now time.Time, meta models.Metadata) (*models.SubmitResponse, error) {
	if f := w.Frontier(); !w.Valid(f) {
		return nil, w.refuse(f)
	}
	if err := w.session.CheckSubmit(now, strings.TrimSpace(w.honeypot)); err != nil {
		return nil, err
	}
	resp, err := s.Submit(ctx, w.Payload(now, meta))
	if err != nil {
		return nil, err
	}
	w.session.MarkSubmitted(now)
	return resp, nil
}

// IsNotFound reports whether err means a ZIP could not be resolved.
func IsNotFound(err error) bool {
	return errors.Is(err, zipcode.ErrNotFound)
}
