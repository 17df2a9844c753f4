package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"

	"github.com/Nomankaif/debtprotection-quiz/internal/validation"
)

var (
	errEmptyBody   = errors.New("empty body")
	errBodyTooBig  = errors.New("body too large")
	errInvalidJSON = errors.New("invalid JSON")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// readObject decodes a JSON object body into v. A missing body, "null" and
// "{}" all count as empty. Numbers decode as json.Number. A field of the
// wrong type comes back as validation.Errors keyed by its path.
func readObject(r *http.Request, v any) error {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return errBodyTooBig
		}
		return err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return errEmptyBody
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return errInvalidJSON
	}
	if len(fields) == 0 {
		return errEmptyBody
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return typeMismatch(typeErr, fields)
		}
		return errInvalidJSON
	}
	return nil
}

// typeMismatch reports a well-formed body whose field has the wrong JSON
// type the same way schema failures are reported.
func typeMismatch(e *json.UnmarshalTypeError, fields map[string]json.RawMessage) validation.Errors {
	fe := validation.FieldError{
		Message: fmt.Sprintf("Cast to %s failed for value of type %s at path `%s`.", typeName(e.Type), e.Value, e.Field),
	}
	if rawValue, ok := fields[e.Field]; ok {
		var decoded any
		if json.Unmarshal(rawValue, &decoded) == nil {
			fe.Value = decoded
			fe.Message = fmt.Sprintf("Cast to %s failed for value %s at path `%s`.", typeName(e.Type), rawValue, e.Field)
		}
	}
	return validation.Errors{e.Field: fe}
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	switch t.Kind() {
	case reflect.Bool:
		return "Boolean"
	case reflect.String:
		return "String"
	case reflect.Slice, reflect.Array:
		return "Array"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "Number"
	case reflect.Struct, reflect.Map:
		return "Object"
	}
	return t.String()
}
