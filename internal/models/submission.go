package models

import (
	"encoding/json"
	"reflect"
)

// Submission is one completed quiz, persisted once and never updated.
type Submission struct {
	ID                 string   `json:"_id,omitempty"`
	DebtAmount         string   `json:"debtAmount"`
	Assets             []string `json:"assets"`
	EmploymentStatus   string   `json:"employmentStatus,omitempty"`
	Struggles          []string `json:"struggles,omitempty"`
	DebtTypes          []string `json:"debtTypes"`
	Zipcode            string   `json:"zipcode"`
	Phone              string   `json:"phone"`
	CountryCode        string   `json:"countryCode"`
	FirstName          string   `json:"firstName"`
	LastName           string   `json:"lastName"`
	Email              string   `json:"email"`
	Option             bool     `json:"option"`
	SubmissionMetadata Metadata `json:"submissionMetadata"`
	CreatedAt          string   `json:"createdAt"`
}

// Metadata is page telemetry captured by the browser at submit time.
type Metadata struct {
	PageURL          string `json:"pageUrl,omitempty"`
	Referrer         string `json:"referrer,omitempty"`
	UserAgent        string `json:"userAgent,omitempty"`
	DwellTimeMs      int64  `json:"dwellTimeMs,omitempty"`
	InteractionCount int    `json:"interactionCount,omitempty"`
}

// SubmitRequest is the JSON body accepted by the submit endpoint and built
// by the quiz wizard. DebtAmount is a bucket key, but older clients send a
// plain number, so it stays untyped until normalization.
type SubmitRequest struct {
	DebtAmount         any         `json:"debtAmount"`
	Assets             []string    `json:"assets"`
	EmploymentStatus   string      `json:"employmentStatus,omitempty"`
	Struggles          []string    `json:"struggles,omitempty"`
	DebtTypes          []string    `json:"debtTypes"`
	Zipcode            DigitString `json:"zipcode"`
	Phone              DigitString `json:"phone"`
	CountryCode        string      `json:"countryCode"`
	FirstName          string      `json:"firstName"`
	LastName           string      `json:"lastName"`
	Email              string      `json:"email"`
	Option             bool        `json:"option"`
	SubmissionMetadata Metadata    `json:"submissionMetadata"`
}

// DigitString is a string field that also accepts a bare JSON number, since
// clients often send ZIP codes and phone numbers unquoted. The number keeps
// its literal text.
type DigitString string

func (d *DigitString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] != '"' && data[0] != 'n' {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return &json.UnmarshalTypeError{Value: string(data), Type: reflect.TypeFor[string]()}
		}
		*d = DigitString(n)
		return nil
	}
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s != nil {
		*d = DigitString(*s)
	}
	return nil
}

// SubmitResponse acknowledges a stored submission.
type SubmitResponse struct {
	Message  string          `json:"message"`
	ID       string          `json:"id"`
	External []ForwardResult `json:"external"`
}

// Forwarding outcomes reported per partner.
const (
	ForwardSuccess = "success"
	ForwardMock    = "mock"
	ForwardError   = "error"
)

// ForwardResult is the outcome of delivering a submission to one partner.
type ForwardResult struct {
	API          string         `json:"api"`
	Status       string         `json:"status"`
	Code         int            `json:"code,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
	Error        string         `json:"error,omitempty"`
	StatusCode   int            `json:"statusCode,omitempty"`
	ResponseData any            `json:"responseData,omitempty"`
}
