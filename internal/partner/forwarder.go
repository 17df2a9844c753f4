package partner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Nomankaif/debtprotection-quiz/internal/models"
)

const (
	defaultTimeout  = 5 * time.Second
	maxResponseBody = 64 << 10
	maxConcurrent   = 4
)

// Options configures a Forwarder.
type Options struct {
	// Enabled turns real delivery on. When false Forward returns an empty
	// list and makes no calls.
	Enabled bool
	Client  *http.Client
	// Timeout bounds each delivery unless the partner sets its own.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Forwarder delivers submissions to every enabled partner.
type Forwarder struct {
	partners []Partner
	enabled  bool
	client   *http.Client
	timeout  time.Duration
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func NewForwarder(partners []Partner, opts Options) *Forwarder {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Forwarder{
		partners: partners,
		enabled:  opts.Enabled,
		client:   opts.Client,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
		tracer:   otel.Tracer("github.com/Nomankaif/debtprotection-quiz/internal/partner"),
		now:      time.Now,
	}
}

// Enabled reports whether deliveries leave the process.
func (f *Forwarder) Enabled() bool { return f.enabled }

// Partners lists the configured partners, enabled or not.
func (f *Forwarder) Partners() []Partner { return f.partners }

// Forward sends sub to every enabled partner concurrently and returns one
// result per partner in configuration order. A failing partner never
// affects the others and Forward itself never fails.
func (f *Forwarder) Forward(ctx context.Context, sub *models.Submission) []models.ForwardResult {
	if !f.enabled {
		f.logger.Debug("partner forwarding disabled", "submission_id", sub.ID)
		return []models.ForwardResult{}
	}

	var active []Partner
	for _, p := range f.partners {
		if !p.Enabled {
			f.logger.Debug("skipping disabled partner", "partner", p.Name)
			continue
		}
		active = append(active, p)
	}

	results := make([]models.ForwardResult, len(active))
	var g errgroup.Group
	g.SetLimit(maxConcurrent)
	for i, p := range active {
		g.Go(func() error {
			results[i] = f.deliver(ctx, p, sub)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (f *Forwarder) deliver(ctx context.Context, p Partner, sub *models.Submission) models.ForwardResult {
	ctx, span := f.tracer.Start(ctx, "partner.deliver", trace.WithAttributes(
		attribute.String("partner.name", p.Name),
		attribute.Bool("partner.mock", p.Mock || p.URL == ""),
	))
	defer span.End()

	payload := p.Map(sub)

	if p.Mock || p.URL == "" {
		mockID := fmt.Sprintf("mock_%s_%s", p.Name, uuid.NewString())
		f.logger.Info("mocking partner delivery", "partner", p.Name, "mock_id", mockID)
		return models.ForwardResult{
			API:    p.Name,
			Status: models.ForwardMock,
			Code:   http.StatusOK,
			Data: map[string]any{
				"id":         mockID,
				"receivedAt": f.now().UTC().Format(time.RFC3339),
			},
		}
	}

	timeout := f.timeout
	if p.Timeout > 0 {
		timeout = p.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fail := func(err error, status int, body any) models.ForwardResult {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		f.logger.Error("partner delivery failed", "partner", p.Name, "status", status, "error", err)
		return models.ForwardResult{
			API:          p.Name,
			Status:       models.ForwardError,
			Error:        err.Error(),
			StatusCode:   status,
			ResponseData: body,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fail(fmt.Errorf("marshal payload: %w", err), 0, nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return fail(fmt.Errorf("build request: %w", err), 0, nil)
	}
	if p.Headers != nil {
		for k, v := range p.Headers(sub) {
			req.Header.Set(k, v)
		}
	}

	f.logger.Info("sending to partner", "partner", p.Name, "url", p.URL)
	resp, err := f.client.Do(req)
	if err != nil {
		return fail(err, 0, nil)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		return fail(fmt.Errorf("request failed with status code %d", resp.StatusCode), resp.StatusCode, decodeBody(raw))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))

	f.logger.Info("partner accepted submission", "partner", p.Name, "status", resp.StatusCode)
	return models.ForwardResult{API: p.Name, Status: models.ForwardSuccess, Code: resp.StatusCode}
}

// decodeBody returns parsed JSON when possible, otherwise the raw text.
func decodeBody(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	return string(raw)
}
