package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Nomankaif/debtprotection-quiz/internal/apidoc"
	"github.com/Nomankaif/debtprotection-quiz/internal/handler"
	"github.com/Nomankaif/debtprotection-quiz/internal/models"
	"github.com/Nomankaif/debtprotection-quiz/internal/partner"
	"github.com/Nomankaif/debtprotection-quiz/internal/repository"
	"github.com/Nomankaif/debtprotection-quiz/internal/service"
	"github.com/Nomankaif/debtprotection-quiz/internal/validation"
)

const (
	testSecret = "router-test-secret"
	adminEmail = "admin@quiz.test"
	adminPass  = "correct horse"
)

type fixture struct {
	srv   *httptest.Server
	store *repository.SQLiteSubmissionRepo
}

func newFixture(t *testing.T, partners []partner.Partner, forwarding bool) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := repository.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.EnsureIndexes(context.Background()); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	fwd := partner.NewForwarder(partners, partner.Options{Enabled: forwarding, Logger: logger, Timeout: 2 * time.Second})
	subSvc := service.NewSubmissionService(store, fwd, validation.Options{StrictConsent: true}, logger)
	authSvc, err := service.NewAuthService(adminEmail, adminPass, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	doc, err := apidoc.Load(context.Background())
	if err != nil {
		t.Fatalf("apidoc: %v", err)
	}
	docH, err := apidoc.Handler(doc)
	if err != nil {
		t.Fatalf("apidoc handler: %v", err)
	}

	r := New(Deps{
		Logger:         logger,
		CORSOrigin:     "*",
		RequestTimeout: 5 * time.Second,
		JWTSecret:      testSecret,
		SubmissionH:    handler.NewSubmissionHandler(subSvc, logger),
		AuthH:          handler.NewAuthHandler(authSvc),
		AdminH:         handler.NewAdminHandler(subSvc, logger),
		APIDoc:         docH,
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, store: store}
}

func (f *fixture) do(t *testing.T, method, path, token string, body string) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func validBody(t *testing.T, mutate func(map[string]any)) string {
	t.Helper()
	body := map[string]any{
		"debtAmount":  "10000-14999",
		"assets":      []string{"house"},
		"debtTypes":   []string{"credit-cards"},
		"zipcode":     "10001",
		"phone":       "2125550100",
		"countryCode": "+1",
		"firstName":   "Ada",
		"lastName":    "Lovelace",
		"email":       "ada@example.com",
		"option":      true,
		"submissionMetadata": map[string]any{
			"pageUrl":          "https://quiz.example.com/",
			"dwellTimeMs":      4200,
			"interactionCount": 9,
		},
	}
	if mutate != nil {
		mutate(body)
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestLiveness(t *testing.T) {
	f := newFixture(t, nil, false)
	resp, err := http.Get(f.srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(raw) != handler.LivenessMessage {
		t.Fatalf("unexpected liveness %d %q", resp.StatusCode, raw)
	}
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t, nil, false)
	status, body := f.do(t, http.MethodGet, "/nope", "", "")
	if status != http.StatusNotFound || body["message"] != "Route does not exist." {
		t.Fatalf("unexpected 404 %d %v", status, body)
	}
}

func TestSubmitSuccessWithPartialForwardingFailure(t *testing.T) {
	var got map[string]any
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer failing.Close()

	partners := partner.Defaults(partner.Credentials{LeadMirrorAPIKey: "k"})
	partners[0].URL = ok.URL
	partners[1].URL = failing.URL
	partners[1].Enabled = true

	f := newFixture(t, partners, true)
	for _, path := range []string{"/api/form/submit", "/quiz/api/form/submit"} {
		status, body := f.do(t, http.MethodPost, path, "", validBody(t, nil))
		if status != http.StatusCreated {
			t.Fatalf("%s: expected 201, got %d %v", path, status, body)
		}
		if body["message"] != service.SubmittedMessage || body["id"] == "" {
			t.Fatalf("%s: unexpected body %v", path, body)
		}
		external, _ := body["external"].([]any)
		if len(external) != 2 {
			t.Fatalf("%s: expected two forwarding results, got %v", path, body["external"])
		}
		first := external[0].(map[string]any)
		second := external[1].(map[string]any)
		if first["status"] != models.ForwardSuccess || second["status"] != models.ForwardError {
			t.Fatalf("%s: unexpected results %v", path, external)
		}
		if second["statusCode"] != float64(http.StatusBadGateway) {
			t.Fatalf("%s: expected statusCode 502, got %v", path, second["statusCode"])
		}
	}
	if got["debtRange"] != "$10,000 - $14,999" || got["firstName"] != "Ada" {
		t.Fatalf("partner saw unexpected payload %v", got)
	}

	n, err := f.store.CountBy(context.Background(), "", "")
	if err != nil || n != 2 {
		t.Fatalf("expected 2 stored submissions, got %d (%v)", n, err)
	}
}

func TestSubmitForwardingDisabled(t *testing.T) {
	f := newFixture(t, partner.Defaults(partner.Credentials{}), false)
	status, body := f.do(t, http.MethodPost, "/api/form/submit", "", validBody(t, nil))
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d %v", status, body)
	}
	if diff := cmp.Diff([]any{}, body["external"]); diff != "" {
		t.Fatalf("external (-want +got):\n%s", diff)
	}
}

func TestSubmitRejections(t *testing.T) {
	f := newFixture(t, nil, false)
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"no body", "", "Request body is empty. Did you send JSON?"},
		{"empty object", "{}", "Request body is empty. Did you send JSON?"},
		{"not json", "debt=lots", "Request body is not valid JSON."},
		{"missing email", validBody(t, func(b map[string]any) { delete(b, "email") }), "Missing or invalid required fields"},
		{"consent", validBody(t, func(b map[string]any) { b["option"] = false }), "Invalid form data"},
		{"bad zip", validBody(t, func(b map[string]any) { b["zipcode"] = "123" }), "Invalid form data"},
		{"disposable", validBody(t, func(b map[string]any) { b["email"] = "x@mailinator.com" }), "Invalid form data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.do(t, http.MethodPost, "/api/form/submit", "", tt.body)
			if status != http.StatusBadRequest || body["message"] != tt.message {
				t.Fatalf("expected 400 %q, got %d %v", tt.message, status, body)
			}
		})
	}

	_, body := f.do(t, http.MethodPost, "/api/form/submit", "", validBody(t, func(b map[string]any) {
		delete(b, "email")
		b["zipcode"] = ""
	}))
	if diff := cmp.Diff([]any{"email", "zipcode"}, body["missing"]); diff != "" {
		t.Fatalf("missing (-want +got):\n%s", diff)
	}
	if _, ok := body["required"]; !ok {
		t.Fatal("expected required list")
	}
	received, _ := body["received"].(map[string]any)
	if received["firstName"] != "Ada" {
		t.Fatalf("unexpected received %v", body["received"])
	}
}

func TestSubmitNumericDebtAmount(t *testing.T) {
	f := newFixture(t, nil, false)
	status, body := f.do(t, http.MethodPost, "/api/form/submit", "", validBody(t, func(b map[string]any) {
		b["debtAmount"] = 0
		b["assets"] = []string{}
	}))
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d %v", status, body)
	}
	subs, _, err := f.store.List(context.Background(), 0, 1)
	if err != nil || len(subs) != 1 {
		t.Fatalf("list: %v %v", subs, err)
	}
	if subs[0].DebtAmount != "0-4999" || !cmp.Equal(subs[0].Assets, []string{"none"}) {
		t.Fatalf("unexpected stored record %+v", subs[0])
	}
}

func TestSubmitNumericContactFields(t *testing.T) {
	f := newFixture(t, nil, false)
	status, body := f.do(t, http.MethodPost, "/api/form/submit", "", validBody(t, func(b map[string]any) {
		b["zipcode"] = 10001
		b["phone"] = 2125550100
	}))
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d %v", status, body)
	}
	subs, _, err := f.store.List(context.Background(), 0, 1)
	if err != nil || len(subs) != 1 {
		t.Fatalf("list: %v %v", subs, err)
	}
	if subs[0].Zipcode != "10001" || subs[0].Phone != "2125550100" {
		t.Fatalf("unexpected stored record %+v", subs[0])
	}
}

func TestSubmitWrongFieldType(t *testing.T) {
	f := newFixture(t, nil, false)
	tests := []struct {
		name  string
		field string
		value any
	}{
		{"option as string", "option", "true"},
		{"zipcode as bool", "zipcode", true},
		{"assets as string", "assets", "house"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.do(t, http.MethodPost, "/api/form/submit", "", validBody(t, func(b map[string]any) {
				b[tt.field] = tt.value
			}))
			if status != http.StatusBadRequest || body["message"] != "Invalid form data" {
				t.Fatalf("expected 400 Invalid form data, got %d %v", status, body)
			}
			errs, _ := body["errors"].(map[string]any)
			fieldErr, ok := errs[tt.field].(map[string]any)
			if !ok {
				t.Fatalf("expected an error for %s, got %v", tt.field, body["errors"])
			}
			if diff := cmp.Diff(tt.value, fieldErr["value"]); diff != "" {
				t.Fatalf("value (-want +got):\n%s", diff)
			}
			if msg, _ := fieldErr["message"].(string); !strings.Contains(msg, tt.field) {
				t.Fatalf("message %q does not name the field", msg)
			}
		})
	}
}

func TestSubmitPersistenceFailure(t *testing.T) {
	f := newFixture(t, nil, false)
	_ = f.store.Close()
	status, body := f.do(t, http.MethodPost, "/api/form/submit", "", validBody(t, nil))
	if status != http.StatusInternalServerError || body["message"] != "Unexpected server error" || body["error"] == "" {
		t.Fatalf("expected 500, got %d %v", status, body)
	}
}

func TestAdminFlow(t *testing.T) {
	f := newFixture(t, nil, false)
	for i := 0; i < 3; i++ {
		if status, body := f.do(t, http.MethodPost, "/api/form/submit", "", validBody(t, nil)); status != http.StatusCreated {
			t.Fatalf("seed: %d %v", status, body)
		}
	}

	if status, _ := f.do(t, http.MethodGet, "/api/admin/submissions", "", ""); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
	if status, _ := f.do(t, http.MethodPost, "/api/admin/login", "", `{"email":"admin@quiz.test","password":"wrong"}`); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", status)
	}

	status, login := f.do(t, http.MethodPost, "/api/admin/login", "", `{"email":"admin@quiz.test","password":"correct horse"}`)
	if status != http.StatusOK {
		t.Fatalf("login: %d %v", status, login)
	}
	token, _ := login["token"].(string)

	status, page := f.do(t, http.MethodGet, "/api/admin/submissions?limit=2", token, "")
	if status != http.StatusOK || page["total"] != float64(3) || len(page["submissions"].([]any)) != 2 {
		t.Fatalf("unexpected page %d %v", status, page)
	}
	first := page["submissions"].([]any)[0].(map[string]any)
	id, _ := first["_id"].(string)

	status, sub := f.do(t, http.MethodGet, "/api/admin/submissions/"+id, token, "")
	if status != http.StatusOK || sub["email"] != "ada@example.com" {
		t.Fatalf("get: %d %v", status, sub)
	}
	if status, _ := f.do(t, http.MethodGet, "/api/admin/submissions/999999", token, ""); status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}

	status, stats := f.do(t, http.MethodGet, "/api/admin/stats", token, "")
	if status != http.StatusOK || stats["total"] != float64(3) {
		t.Fatalf("stats: %d %v", status, stats)
	}
	countries, _ := stats["countries"].(map[string]any)
	if countries["+1"] != float64(3) {
		t.Fatalf("unexpected countries %v", stats["countries"])
	}

	status, idx := f.do(t, http.MethodGet, "/api/admin/indexes", token, "")
	if status != http.StatusOK || len(idx["indexes"].([]any)) == 0 {
		t.Fatalf("indexes: %d %v", status, idx)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil, false)
	if status, body := f.do(t, http.MethodGet, "/api/health", "", ""); status != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("expected healthy, got %d %v", status, body)
	}
	_ = f.store.Close()
	if status, _ := f.do(t, http.MethodGet, "/api/health", "", ""); status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", status)
	}
}

func TestOpenAPIDocument(t *testing.T) {
	f := newFixture(t, nil, false)
	status, body := f.do(t, http.MethodGet, "/api/openapi.json", "", "")
	if status != http.StatusOK || body["openapi"] != "3.0.3" {
		t.Fatalf("unexpected document %d", status)
	}
}
