package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Nomankaif/debtprotection-quiz/internal/debtrange"
	"github.com/Nomankaif/debtprotection-quiz/internal/models"
	"github.com/Nomankaif/debtprotection-quiz/internal/repository"
	"github.com/Nomankaif/debtprotection-quiz/internal/validation"
)

// SubmittedMessage acknowledges a stored submission.
const SubmittedMessage = "Form submitted successfully"

// RequiredFields must be present before anything else is checked.
var RequiredFields = []string{"debtAmount", "firstName", "lastName", "email", "zipcode"}

var ErrNotFound = errors.New("submission not found")

// MissingFieldsError reports absent required fields together with what was
// received for them.
type MissingFieldsError struct {
	Missing  []string
	Received map[string]any
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// Forwarder relays a stored submission to partners.
type Forwarder interface {
	Forward(ctx context.Context, sub *models.Submission) []models.ForwardResult
}

type SubmissionService struct {
	store  repository.Store
	fwd    Forwarder
	opts   validation.Options
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewSubmissionService(store repository.Store, fwd Forwarder, opts validation.Options, logger *slog.Logger) *SubmissionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionService{
		store:  store,
		fwd:    fwd,
		opts:   opts,
		logger: logger,
		tracer: otel.Tracer("github.com/Nomankaif/debtprotection-quiz/internal/service"),
		now:    time.Now,
	}
}

// Submit checks, normalizes, validates and stores req, then forwards the
// stored record. Forwarding outcomes are returned in the response and never
// fail the call.
func (s *SubmissionService) Submit(ctx context.Context, req *models.SubmitRequest) (*models.SubmitResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.submit")
	defer span.End()

	if err := checkRequired(req); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	sub := normalize(req)
	if err := validation.Submission(sub, s.opts); err != nil {
		span.SetStatus(codes.Error, "invalid form data")
		return nil, err
	}
	sub.CreatedAt = s.now().UTC().Format(time.RFC3339)

	id, err := s.persist(ctx, sub)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	sub.ID = id
	span.SetAttributes(
		attribute.String("submission.id", id),
		attribute.String("submission.debt_amount", sub.DebtAmount),
	)
	s.logger.Info("submission stored", "id", id, "debt_amount", sub.DebtAmount, "country_code", sub.CountryCode)

	external := []models.ForwardResult{}
	if s.fwd != nil {
		external = s.fwd.Forward(ctx, sub)
	}

	return &models.SubmitResponse{
		Message:  SubmittedMessage,
		ID:       id,
		External: external,
	}, nil
}

func (s *SubmissionService) persist(ctx context.Context, sub *models.Submission) (string, error) {
	ctx, span := s.tracer.Start(ctx, "submission.persist")
	defer span.End()
	id, err := s.store.Create(ctx, sub)
	if err != nil {
		return "", fmt.Errorf("persist submission: %w", err)
	}
	return id, nil
}

func checkRequired(req *models.SubmitRequest) error {
	var missing []string
	if isBlank(req.DebtAmount) {
		missing = append(missing, "debtAmount")
	}
	for _, f := range []struct {
		name  string
		value string
	}{
		{"firstName", req.FirstName},
		{"lastName", req.LastName},
		{"email", req.Email},
		{"zipcode", string(req.Zipcode)},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingFieldsError{
		Missing: missing,
		Received: map[string]any{
			"debtAmount": req.DebtAmount,
			"firstName":  req.FirstName,
			"lastName":   req.LastName,
			"email":      req.Email,
			"zipcode":    req.Zipcode,
			"option":     req.Option,
		},
	}
}

// isBlank treats absent, null and empty-string amounts as missing. A
// numeric zero is a real answer.
func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

// List returns a page of submissions, newest first.
func (s *SubmissionService) List(ctx context.Context, skip, limit int) ([]models.Submission, int, error) {
	return s.store.List(ctx, skip, limit)
}

func (s *SubmissionService) Get(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNotFound
	}
	return sub, nil
}

// Health reports whether the store answers.
func (s *SubmissionService) Health(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Indexes describes the store's secondary indexes.
func (s *SubmissionService) Indexes(ctx context.Context) ([]map[string]any, error) {
	return s.store.Indexes(ctx)
}

// BucketCount is the number of submissions in one debt bucket.
type BucketCount struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Stats summarizes stored submissions.
type Stats struct {
	Total     int            `json:"total"`
	Buckets   []BucketCount  `json:"buckets"`
	Countries map[string]int `json:"countries"`
}

func (s *SubmissionService) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.store.CountBy(ctx, "", "")
	if err != nil {
		return nil, err
	}
	st := &Stats{
		Total:     total,
		Buckets:   make([]BucketCount, 0, len(debtrange.Buckets)),
		Countries: map[string]int{},
	}
	for _, b := range debtrange.Buckets {
		n, err := s.store.CountBy(ctx, "debtAmount", b.Key)
		if err != nil {
			return nil, err
		}
		st.Buckets = append(st.Buckets, BucketCount{Key: b.Key, Label: b.Label(), Count: n})
	}
	for _, c := range models.Countries {
		n, err := s.store.CountBy(ctx, "countryCode", c.Code)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			st.Countries[c.Code] = n
		}
	}
	return st, nil
}
