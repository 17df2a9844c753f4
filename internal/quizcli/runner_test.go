package quizcli

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Nomankaif/debtprotection-quiz/internal/models"
	"github.com/Nomankaif/debtprotection-quiz/internal/quiz"
	"github.com/Nomankaif/debtprotection-quiz/internal/zipcode"
)

var errScriptDone = errors.New("script exhausted")

type scripted struct {
	selects  []int
	multis   [][]int
	inputs   []string
	confirms []bool
	infos    []string
}

func pop[T any](q *[]T) (T, error) {
	var zero T
	if len(*q) == 0 {
		return zero, errScriptDone
	}
	v := (*q)[0]
	*q = (*q)[1:]
	return v, nil
}

func (s *scripted) Select(string, []string, int) (int, error) { return pop(&s.selects) }
func (s *scripted) MultiSelect(string, string, []string, []int) ([]int, error) {
	return pop(&s.multis)
}
func (s *scripted) Input(string, string, func(string) error) (string, error) { return pop(&s.inputs) }
func (s *scripted) Confirm(string, bool) (bool, error)                     { return pop(&s.confirms) }
func (s *scripted) Info(msg string)                                          { s.infos = append(s.infos, msg) }

type captureSubmitter struct {
	got *models.SubmitRequest
}

func (c *captureSubmitter) Submit(_ context.Context, req models.SubmitRequest) (*models.SubmitResponse, error) {
	c.got = &req
	return &models.SubmitResponse{Message: "Form submitted successfully", ID: "1", External: []models.ForwardResult{}}, nil
}

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newRunner(p Prompter, session *quiz.Session, sub quiz.Submitter) *Runner {
	w := quiz.NewWizard(zipcode.NewResolver(zipcode.Default(), nil), session)
	return &Runner{
		Wizard:    w,
		Prompt:    p,
		Submitter: sub,
		Meta:      models.Metadata{UserAgent: "quiz-cli-test"},
		Now:       func() time.Time { return start.Add(30 * time.Second) },
	}
}

func TestRunSubmits(t *testing.T) {
	p := &scripted{
		selects:  []int{3, 0},
		multis:   [][]int{{0}, {0, 2}},
		inputs:   []string{"10001", "(212) 555-0100", "Ada", "Lovelace", "ada@example.com"},
		confirms: []bool{true, true},
	}
	sub := &captureSubmitter{}
	resp, err := newRunner(p, quiz.NewSession(start), sub).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v (infos %v)", err, p.infos)
	}
	if resp.ID != "1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	got := sub.got
	if got.DebtAmount != "10000-14999" || got.Zipcode != "10001" || got.Phone != "2125550100" {
		t.Fatalf("unexpected payload %+v", got)
	}
	if diff := cmp.Diff([]string{"credit-cards", "student-loans"}, got.DebtTypes); diff != "" {
		t.Fatalf("debtTypes (-want +got):\n%s", diff)
	}
	if got.SubmissionMetadata.UserAgent != "quiz-cli-test" || got.SubmissionMetadata.DwellTimeMs != 30000 {
		t.Fatalf("unexpected metadata %+v", got.SubmissionMetadata)
	}
	if !slices.Contains(p.infos, "New York, NY") || !slices.Contains(p.infos, "(212) 555-0100") {
		t.Fatalf("expected ZIP and phone feedback, got %v", p.infos)
	}
}

func TestRunRepeatsContactOnUnknownZip(t *testing.T) {
	p := &scripted{
		selects:  []int{0, 0, 0},
		multis:   [][]int{{4}, {6}},
		inputs:   []string{"99999", "2125550100", "10001", "2125550100", "Ada", "Lovelace", "ada@example.com"},
		confirms: []bool{true, true},
	}
	sub := &captureSubmitter{}
	if _, err := newRunner(p, quiz.NewSession(start), sub).Run(context.Background()); err != nil {
		t.Fatalf("run: %v (infos %v)", err, p.infos)
	}
	if !slices.Contains(p.infos, zipNotFound) {
		t.Fatalf("expected ZIP miss message, got %v", p.infos)
	}
	if diff := cmp.Diff([]string{"none"}, sub.got.Assets); diff != "" {
		t.Fatalf("assets (-want +got):\n%s", diff)
	}
}

func TestRunRepeatsLastStepUntilValid(t *testing.T) {
	p := &scripted{
		selects: []int{3, 0},
		multis:  [][]int{{0}, {0}},
		inputs: []string{
			"10001", "2125550100",
			"Ada", "Lovelace", "ada@mailinator.com",
			"Ada", "Lovelace", "ada@example.com",
		},
		confirms: []bool{true, true, true},
	}
	sub := &captureSubmitter{}
	if _, err := newRunner(p, quiz.NewSession(start), sub).Run(context.Background()); err != nil {
		t.Fatalf("run: %v (infos %v)", err, p.infos)
	}
	if !slices.Contains(p.infos, "Please use a real email (no disposable providers).") {
		t.Fatalf("expected disposable email message, got %v", p.infos)
	}
	if sub.got.Email != "ada@example.com" {
		t.Fatalf("unexpected email %q", sub.got.Email)
	}
}

func TestRunStopsOnCooldown(t *testing.T) {
	session := quiz.NewSession(start)
	session.LastSubmitAt = start.Add(10 * time.Second)
	p := &scripted{
		selects:  []int{3, 0},
		multis:   [][]int{{0}, {0}},
		inputs:   []string{"10001", "2125550100", "Ada", "Lovelace", "ada@example.com"},
		confirms: []bool{true, true},
	}
	sub := &captureSubmitter{}
	_, err := newRunner(p, session, sub).Run(context.Background())
	if !errors.Is(err, quiz.ErrCoolingOff) {
		t.Fatalf("expected cooldown, got %v", err)
	}
	if sub.got != nil {
		t.Fatal("nothing may be sent during cooldown")
	}
}

func TestRunPropagatesPromptErrors(t *testing.T) {
	_, err := newRunner(&scripted{}, quiz.NewSession(start), &captureSubmitter{}).Run(context.Background())
	if !errors.Is(err, errScriptDone) {
		t.Fatalf("expected prompt error, got %v", err)
	}
}

func TestSessionStore(t *testing.T) {
	store := &SessionStore{Path: filepath.Join(t.TempDir(), "nested", "session.json")}
	if s := store.Load(start); !s.LastSubmitAt.IsZero() {
		t.Fatalf("fresh store must start clean, got %v", s.LastSubmitAt)
	}

	prev := quiz.NewSession(start)
	prev.MarkSubmitted(start.Add(time.Minute))
	if err := store.Save(prev); err != nil {
		t.Fatalf("save: %v", err)
	}

	next := store.Load(start.Add(time.Hour))
	if !next.LastSubmitAt.Equal(start.Add(time.Minute)) {
		t.Fatalf("expected carried LastSubmitAt, got %v", next.LastSubmitAt)
	}
	if next.InteractionCount != 0 || !next.LoadTime.Equal(start.Add(time.Hour)) {
		t.Fatalf("expected fresh counters, got %+v", next)
	}
}
