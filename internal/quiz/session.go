package quiz

import (
	"errors"
	"time"
)

// Submit gate thresholds.
const (
	MinDwell        = 2500 * time.Millisecond
	MinInteractions = 2
	Cooldown        = 60 * time.Second
)

// Reasons the submit gate refuses a submission.
var (
	ErrHoneypot   = errors.New("quiz: honeypot field filled")
	ErrTooFast    = errors.New("quiz: submitted too quickly")
	ErrCoolingOff = errors.New("quiz: submit cooldown active")
)

var gateMessages = map[error]string{
	ErrHoneypot:   "Submission flagged as automated.",
	ErrTooFast:    "Submission looked automated. Please try again.",
	ErrCoolingOff: "Please wait a moment before trying again.",
}

// UserMessage returns the text shown to the visitor for a submit failure.
func UserMessage(err error) string {
	for sentinel, msg := range gateMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Message
	}
	return "Something went wrong sending your request. Please try again."
}

// Session carries the bot heuristics for one visitor. LastSubmitAt outlives
// the wizard so callers persist it between runs.
type Session struct {
	LoadTime         time.Time `json:"loadTime"`
	InteractionCount int       `json:"interactionCount"`
	LastSubmitAt     time.Time `json:"lastSubmitAt"`
}

// NewSession starts a session loaded at now.
func NewSession(now time.Time) *Session {
	return &Session{LoadTime: now}
}

// Touch records one user interaction.
func (s *Session) Touch() {
	s.InteractionCount++
}

// Dwell is the time spent since load.
func (s *Session) Dwell(now time.Time) time.Duration {
	return now.Sub(s.LoadTime)
}

// CheckSubmit applies the honeypot, dwell, interaction and cooldown checks
// in that order.
func (s *Session) CheckSubmit(now time.Time, honeypot string) error {
	if honeypot != "" {
		return ErrHoneypot
	}
	if s.Dwell(now) < MinDwell || s.InteractionCount < MinInteractions {
		return ErrTooFast
	}
	if !s.LastSubmitAt.IsZero() && now.Sub(s.LastSubmitAt) <= Cooldown {
		return ErrCoolingOff
	}
	return nil
}

// MarkSubmitted starts the cooldown.
func (s *Session) MarkSubmitted(now time.Time) {
	s.LastSubmitAt = now
}
