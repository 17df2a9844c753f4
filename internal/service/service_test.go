package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Nomankaif/debtprotection-quiz/internal/auth"
	"github.com/Nomankaif/debtprotection-quiz/internal/models"
	"github.com/Nomankaif/debtprotection-quiz/internal/repository"
	"github.com/Nomankaif/debtprotection-quiz/internal/validation"
)

type memStore struct {
	mu      sync.Mutex
	subs    []models.Submission
	failErr error
}

var _ repository.Store = (*memStore)(nil)

func (m *memStore) EnsureIndexes(context.Context) error { return nil }
func (m *memStore) Close() error                        { return nil }
func (m *memStore) Ping(context.Context) error          { return m.failErr }

func (m *memStore) Indexes(context.Context) ([]map[string]any, error) {
	return []map[string]any{{"name": "debtAmount"}}, nil
}

func (m *memStore) Create(_ context.Context, sub *models.Submission) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return "", m.failErr
	}
	s := *sub
	s.ID = string(rune('0' + len(m.subs) + 1))
	m.subs = append(m.subs, s)
	return s.ID, nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.ID == id {
			out := s
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memStore) List(_ context.Context, skip, limit int) ([]models.Submission, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	end := min(skip+limit, len(m.subs))
	if skip > end {
		return nil, len(m.subs), nil
	}
	return append([]models.Submission(nil), m.subs[skip:end]...), len(m.subs), nil
}

func (m *memStore) CountBy(_ context.Context, field, value string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.subs {
		switch field {
		case "":
			n++
		case "debtAmount":
			if s.DebtAmount == value {
				n++
			}
		case "countryCode":
			if s.CountryCode == value {
				n++
			}
		}
	}
	return n, nil
}

type stubForwarder struct {
	got     *models.Submission
	results []models.ForwardResult
}

func (f *stubForwarder) Forward(_ context.Context, sub *models.Submission) []models.ForwardResult {
	f.got = sub
	return f.results
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func validRequest() *models.SubmitRequest {
	return &models.SubmitRequest{
		DebtAmount:  "10000-14999",
		Assets:      []string{"house"},
		DebtTypes:   []string{"credit-cards"},
		Zipcode:     "10001",
		Phone:       "2125550100",
		CountryCode: "+1",
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       "ada@example.com",
		Option:      true,
	}
}

func newService(store *memStore, fwd Forwarder) *SubmissionService {
	svc := NewSubmissionService(store, fwd, validation.Options{StrictConsent: true}, quiet())
	svc.now = func() time.Time { return time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC) }
	return svc
}

func TestSubmitStoresAndForwards(t *testing.T) {
	store := &memStore{}
	fwd := &stubForwarder{results: []models.ForwardResult{{API: "LeadMirror", Status: models.ForwardSuccess, Code: 200}}}
	svc := newService(store, fwd)

	resp, err := svc.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	want := &models.SubmitResponse{Message: SubmittedMessage, ID: "1", External: fwd.results}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Fatalf("response (-want +got):\n%s", diff)
	}
	if fwd.got == nil || fwd.got.ID != "1" {
		t.Fatalf("forwarder did not receive stored record: %+v", fwd.got)
	}
	if store.subs[0].CreatedAt != "2026-02-03T04:05:06Z" {
		t.Fatalf("unexpected createdAt %q", store.subs[0].CreatedAt)
	}
}

func TestSubmitMissingFields(t *testing.T) {
	req := validRequest()
	req.DebtAmount = nil
	req.Email = ""
	req.Zipcode = "   "
	_, err := newService(&memStore{}, nil).Submit(context.Background(), req)

	var missing *MissingFieldsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldsError, got %v", err)
	}
	if diff := cmp.Diff([]string{"debtAmount", "email", "zipcode"}, missing.Missing); diff != "" {
		t.Fatalf("missing (-want +got):\n%s", diff)
	}
	if missing.Received["firstName"] != "Ada" || missing.Received["option"] != true {
		t.Fatalf("unexpected received echo %+v", missing.Received)
	}
}

func TestSubmitZeroAmountIsPresent(t *testing.T) {
	store := &memStore{}
	req := validRequest()
	req.DebtAmount = json.Number("0")
	if _, err := newService(store, nil).Submit(context.Background(), req); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if store.subs[0].DebtAmount != "0-4999" {
		t.Fatalf("expected bucket 0-4999, got %q", store.subs[0].DebtAmount)
	}
}

func TestSubmitNumericAmountBecomesBucket(t *testing.T) {
	store := &memStore{}
	req := validRequest()
	req.DebtAmount = float64(250000)
	if _, err := newService(store, nil).Submit(context.Background(), req); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if store.subs[0].DebtAmount != "100000+" {
		t.Fatalf("expected 100000+, got %q", store.subs[0].DebtAmount)
	}
}

func TestSubmitStrictConsent(t *testing.T) {
	req := validRequest()
	req.Option = false
	_, err := newService(&memStore{}, nil).Submit(context.Background(), req)
	var errs validation.Errors
	if !errors.As(err, &errs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if _, ok := errs["option"]; !ok {
		t.Fatalf("expected option error, got %v", errs.Fields())
	}
}

func TestSubmitDefaultsAndNormalization(t *testing.T) {
	store := &memStore{}
	req := validRequest()
	req.Assets = nil
	req.DebtTypes = []string{}
	req.Struggles = []string{"all"}
	req.Email = "  Ada@Example.COM "
	req.FirstName = " <b>Ada</b> "
	req.LastName = "O'Brien"
	req.CountryCode = ""
	if _, err := newService(store, nil).Submit(context.Background(), req); err != nil {
		t.Fatalf("submit: %v", err)
	}
	got := store.subs[0]
	if diff := cmp.Diff([]string{"none"}, got.Assets); diff != "" {
		t.Errorf("assets (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"other"}, got.DebtTypes); diff != "" {
		t.Errorf("debtTypes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"high-interest", "min-payments", "multiple-cards", "medical-debt"}, got.Struggles); diff != "" {
		t.Errorf("struggles (-want +got):\n%s", diff)
	}
	if got.Email != "ada@example.com" || got.FirstName != "Ada" || got.LastName != "O'Brien" || got.CountryCode != "+1" {
		t.Errorf("unexpected normalization %+v", got)
	}
}

func TestPlainTextStripsEncodedMarkup(t *testing.T) {
	tests := []struct{ in, want string }{
		{"&lt;script&gt;alert(1)&lt;/script&gt;Bob", "Bob"},
		{"&lt;img src=x onerror=alert(1)&gt;", ""},
		{"&amp;lt;b&amp;gt;Ada&amp;lt;/b&amp;gt;", "Ada"},
		{"<b>Ada</b>", "Ada"},
		{"O'Brien", "O'Brien"},
		{"Smith &amp; Sons", "Smith & Sons"},
		{"  Zoë  ", "Zoë"},
	}
	for _, tt := range tests {
		if got := plainText(tt.in); got != tt.want {
			t.Errorf("plainText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSubmitRejectsEncodedMarkupName(t *testing.T) {
	store := &memStore{}
	fwd := &stubForwarder{}
	req := validRequest()
	req.FirstName = "&lt;script&gt;x&lt;/script&gt;Ada"
	if _, err := newService(store, fwd).Submit(context.Background(), req); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := store.subs[0].FirstName; got != "Ada" {
		t.Fatalf("stored first name %q, want %q", got, "Ada")
	}
	if got := fwd.got.FirstName; strings.ContainsAny(got, "<>") {
		t.Fatalf("forwarded first name carries markup: %q", got)
	}

	req = validRequest()
	req.FirstName = "&lt;img src=x onerror=alert(1)&gt;"
	_, err := newService(&memStore{}, nil).Submit(context.Background(), req)
	var invalid validation.Errors
	if !errors.As(err, &invalid) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if _, ok := invalid["firstName"]; !ok {
		t.Fatalf("expected firstName error, got %v", invalid)
	}
}

func TestSubmitPersistFailure(t *testing.T) {
	store := &memStore{failErr: errors.New("connection reset")}
	fwd := &stubForwarder{}
	_, err := newService(store, fwd).Submit(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	if fwd.got != nil {
		t.Fatal("nothing may be forwarded when persistence fails")
	}
}

func TestSubmitWithoutForwarderReturnsEmptyList(t *testing.T) {
	resp, err := newService(&memStore{}, nil).Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.External == nil || len(resp.External) != 0 {
		t.Fatalf("expected empty external list, got %#v", resp.External)
	}
}

func TestGetAndStats(t *testing.T) {
	store := &memStore{}
	svc := newService(store, nil)
	for _, amt := range []string{"10000-14999", "10000-14999", "100000+"} {
		req := validRequest()
		req.DebtAmount = amt
		if _, err := svc.Submit(context.Background(), req); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := svc.Get(context.Background(), "9"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	sub, err := svc.Get(context.Background(), "2")
	if err != nil || sub.ID != "2" {
		t.Fatalf("get: %v %+v", err, sub)
	}

	st, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Total != 3 || st.Countries["+1"] != 3 {
		t.Fatalf("unexpected stats %+v", st)
	}
	counts := map[string]int{}
	for _, b := range st.Buckets {
		counts[b.Key] = b.Count
	}
	if counts["10000-14999"] != 2 || counts["100000+"] != 1 || counts["0-4999"] != 0 {
		t.Fatalf("unexpected bucket counts %+v", counts)
	}
}

func TestHealth(t *testing.T) {
	if err := newService(&memStore{}, nil).Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	down := &memStore{failErr: errors.New("connection refused")}
	if err := newService(down, nil).Health(context.Background()); err == nil {
		t.Fatal("expected health error")
	}
}

func TestAuthLogin(t *testing.T) {
	svc, err := NewAuthService("Admin@Example.com", "s3cret", "jwt-secret", time.Hour)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	res, err := svc.Login("admin@example.com", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := auth.ValidateToken("jwt-secret", res.Token)
	if err != nil || claims.Role != auth.RoleAdmin {
		t.Fatalf("bad token: %v %+v", err, claims)
	}
	for _, c := range [][2]string{{"admin@example.com", "wrong"}, {"other@example.com", "s3cret"}} {
		if _, err := svc.Login(c[0], c[1]); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected invalid credentials for %v, got %v", c, err)
		}
	}
}
