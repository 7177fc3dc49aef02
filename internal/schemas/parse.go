// -----------------------------------------------------------------------
// Parse-then-validate for model output
// -----------------------------------------------------------------------

package schemas

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// ParseStatus tags the outcome of parsing model output
type ParseStatus string

const (
	ParseOK            ParseStatus = "ok"
	ParseSchemaError   ParseStatus = "schema_error"
	ParseMalformedJSON ParseStatus = "malformed_json"
)

// ParseResult is Ok(Value), SchemaError(Err) or MalformedJSON(Err).
// Callers decide per call whether a failure recovers or propagates.
type ParseResult[T any] struct {
	Status ParseStatus
	Value  T
	Err    error
}

// OK reports whether the value parsed and validated
func (r ParseResult[T]) OK() bool {
	return r.Status == ParseOK
}

var validate = newValidator()

// newValidator adds notblank, which rejects whitespace-only strings that required lets through
func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("schemas: register notblank: %v", err))
	}
	return v
}

var fencePattern = regexp.MustCompile(`(?s)^\s*` + "```" + `(?:json|JSON)?\s*\n?(.*?)\n?\s*` + "```" + `\s*$`)

// CleanFences removes a markdown code fence wrapped around a JSON reply
func CleanFences(s string) string {
	s = strings.TrimSpace(s)

	if matches := fencePattern.FindStringSubmatch(s); len(matches) > 1 {
		s = matches[1]
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}

// Parse decodes raw model output into T and validates it with the struct's validate tags.
// JSON syntax errors are MalformedJSON; type mismatches and failed tags are SchemaError.
func Parse[T any](raw string) ParseResult[T] {
	var value T

	cleaned := CleanFences(raw)
	if cleaned == "" {
		return ParseResult[T]{Status: ParseMalformedJSON, Err: fmt.Errorf("empty response")}
	}

	if err := json.Unmarshal([]byte(cleaned), &value); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return ParseResult[T]{Status: ParseSchemaError, Err: fmt.Errorf("field %s: %w", typeErr.Field, err)}
		}
		return ParseResult[T]{Status: ParseMalformedJSON, Err: err}
	}

	if err := validate.Struct(&value); err != nil {
		return ParseResult[T]{Status: ParseSchemaError, Err: err}
	}

	return ParseResult[T]{Status: ParseOK, Value: value}
}
