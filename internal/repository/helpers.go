package repository

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Nomankaif/debtprotection-quiz/internal/models"
)

// normalizeID converts the _id field from numeric (float64) to string
// since OxiDB returns auto-increment numeric IDs.
func normalizeID(doc map[string]any) {
	if id, ok := doc["_id"]; ok {
		switch v := id.(type) {
		case float64:
			doc["_id"] = strconv.FormatFloat(v, 'f', 0, 64)
		case int:
			doc["_id"] = strconv.Itoa(v)
		}
	}
}

// extractID gets the inserted document ID from an OxiDB insert response.
func extractID(result map[string]any) string {
	if id, ok := result["id"]; ok {
		switch v := id.(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', 0, 64)
		}
	}
	return ""
}

// toNumericID converts a string ID to float64 for OxiDB queries.
func toNumericID(id string) any {
	if n, err := strconv.ParseFloat(id, 64); err == nil {
		return n
	}
	return id
}

func submissionToDoc(s *models.Submission) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal submission: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal submission doc: %w", err)
	}
	delete(doc, "_id")
	return doc, nil
}

func docToSubmission(doc map[string]any) (*models.Submission, error) {
	normalizeID(doc)
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal submission doc: %w", err)
	}
	var s models.Submission
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal submission: %w", err)
	}
	return &s, nil
}
