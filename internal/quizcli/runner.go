package quizcli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Nomankaif/debtprotection-quiz/internal/models"
	"github.com/Nomankaif/debtprotection-quiz/internal/quiz"
	"github.com/Nomankaif/debtprotection-quiz/internal/validation"
	"github.com/Nomankaif/debtprotection-quiz/internal/zipcode"
)

const zipNotFound = "ZIP not found. Double-check it."

// Runner walks a wizard to submission through a Prompter.
type Runner struct {
	Wizard    *quiz.Wizard
	Prompt    Prompter
	Submitter quiz.Submitter
	Meta      models.Metadata
	Now       func() time.Time
}

// Run asks every step until the wizard submits or a prompt fails.
func (r *Runner) Run(ctx context.Context) (*models.SubmitResponse, error) {
	if r.Now == nil {
		r.Now = time.Now
	}
	w := r.Wizard
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		step := w.CurrentStep()
		r.Prompt.Info(fmt.Sprintf("[%d%%] %s", w.Progress(), step.Title()))
		if err := r.ask(ctx, step); err != nil {
			return nil, err
		}

		last := w.Current() == len(w.Steps())-1
		if err := w.Next(); err != nil {
			r.Prompt.Info(quiz.UserMessage(err))
			continue
		}
		if !last {
			continue
		}

		ok, err := r.Prompt.Confirm("Send my answers?", true)
		if err != nil {
			return nil, err
		}
		if !ok {
			if err := r.revisit(); err != nil {
				return nil, err
			}
			continue
		}

		resp, err := w.Submit(ctx, r.Submitter, r.Now(), r.Meta)
		if err == nil {
			return resp, nil
		}
		r.Prompt.Info(quiz.UserMessage(err))
		var stepErr *quiz.StepError
		if errors.As(err, &stepErr) {
			_ = w.JumpTo(stepErr.Step)
			continue
		}
		return nil, err
	}
}

// revisit lets the user jump back to an earlier step.
func (r *Runner) revisit() error {
	steps := r.Wizard.Steps()
	titles := make([]string, len(steps))
	for i, s := range steps {
		titles[i] = s.Title()
	}
	i, err := r.Prompt.Select("Which step do you want to change?", titles, r.Wizard.Current())
	if err != nil {
		return err
	}
	if err := r.Wizard.JumpTo(i); err != nil {
		r.Prompt.Info(quiz.UserMessage(err))
	}
	return nil
}

func (r *Runner) ask(ctx context.Context, step quiz.Step) error {
	switch s := step.(type) {
	case quiz.Dropdown:
		return r.askDropdown(s)
	case quiz.Checkbox:
		return r.askCheckbox(s)
	case quiz.Contact:
		return r.askContact(ctx)
	case quiz.Personal:
		return r.askPersonal()
	}
	return fmt.Errorf("quiz: unsupported step %T", step)
}

func labels(opts []quiz.Option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Label
	}
	return out
}

func (r *Runner) askDropdown(s quiz.Dropdown) error {
	def := slices.IndexFunc(s.Options, func(o quiz.Option) bool { return o.Value == r.Wizard.Data().DebtAmount })
	i, err := r.Prompt.Select(s.Title(), labels(s.Options), def)
	if err != nil {
		return err
	}
	if i < 0 {
		return nil
	}
	return r.Wizard.SetDebtAmount(s.Options[i].Value)
}

func selected(d quiz.Data, key string) []string {
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

func (r *Runner) askCheckbox(s quiz.Checkbox) error {
	var defaults []int
	for i, o := range s.Options {
		if slices.Contains(selected(r.Wizard.Data(), s.Key()), o.Value) {
			defaults = append(defaults, i)
		}
	}
	chosen, err := r.Prompt.MultiSelect(s.Title(), s.Subtitle, labels(s.Options), defaults)
	if err != nil {
		return err
	}
	want := make([]string, 0, len(chosen))
	for _, i := range chosen {
		if i >= 0 && i < len(s.Options) {
			want = append(want, s.Options[i].Value)
		}
	}
	for _, v := range selected(r.Wizard.Data(), s.Key()) {
		if !slices.Contains(want, v) {
			if err := r.Wizard.Toggle(s.Key(), v, false); err != nil {
				return err
			}
		}
	}
	for _, v := range want {
		if slices.Contains(selected(r.Wizard.Data(), s.Key()), v) {
			continue
		}
		if err := r.Wizard.Toggle(s.Key(), v, true); err != nil {
			return err
		}
	}
	if got := selected(r.Wizard.Data(), s.Key()); !slices.Equal(got, want) && len(got) > 0 {
		r.Prompt.Info("Selected: " + strings.Join(got, ", "))
	}
	return nil
}

func (r *Runner) askContact(ctx context.Context) error {
	d := r.Wizard.Data()
	zip, err := r.Prompt.Input("ZIP code", d.Zipcode, func(s string) error {
		if !validation.ValidZipcode(strings.TrimSpace(s)) {
			return errors.New("Please fill a valid 5-digit zip code.")
		}
		return nil
	})
	if err != nil {
		return err
	}
	suggestions, err := r.Wizard.SetZipcode(ctx, zip)
	switch {
	case quiz.IsNotFound(err):
		r.Prompt.Info(zipNotFound)
		if len(suggestions) > 0 {
			r.Prompt.Info("Did you mean: " + describe(suggestions))
		}
	case err != nil:
		return err
	default:
		d = r.Wizard.Data()
		r.Prompt.Info(fmt.Sprintf("%s, %s", d.City, d.State))
	}

	names := make([]string, len(models.Countries))
	def := 0
	for i, c := range models.Countries {
		names[i] = fmt.Sprintf("%s %s", c.Code, c.Name)
		if c.Code == r.Wizard.Data().CountryCode {
			def = i
		}
	}
	i, err := r.Prompt.Select("Country code", names, def)
	if err != nil {
		return err
	}
	if i >= 0 {
		if err := r.Wizard.SetCountryCode(models.Countries[i].Code); err != nil {
			return err
		}
	}

	code := r.Wizard.Data().CountryCode
	country, _ := models.CountryByCode(code)
	phone, err := r.Prompt.Input("Phone number "+country.Format, r.Wizard.Data().Phone, nil)
	if err != nil {
		return err
	}
	r.Wizard.SetPhone(phone)
	if p := r.Wizard.Data().Phone; validation.ValidPhone(code, p) {
		r.Prompt.Info(quiz.FormatPhone(code, p))
	}
	return nil
}

func describe(places []zipcode.Place) string {
	parts := make([]string, 0, len(places))
	for _, p := range places {
		parts = append(parts, fmt.Sprintf("%s (%s, %s)", p.Zip, p.City, p.State))
	}
	return strings.Join(parts, ", ")
}

func (r *Runner) askPersonal() error {
	d := r.Wizard.Data()
	first, err := r.Prompt.Input("First name", d.FirstName, nil)
	if err != nil {
		return err
	}
	r.Wizard.SetFirstName(first)

	last, err := r.Prompt.Input("Last name", d.LastName, nil)
	if err != nil {
		return err
	}
	r.Wizard.SetLastName(last)

	email, err := r.Prompt.Input("Email", d.Email, nil)
	if err != nil {
		return err
	}
	r.Wizard.SetEmail(email)

	agree, err := r.Prompt.Confirm("I agree to receive marketing communications.", d.Option)
	if err != nil {
		return err
	}
	r.Wizard.SetOption(agree)
	return nil
}
