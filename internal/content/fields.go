package content

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrInvalid matches every *ValidationError.
var ErrInvalid = errors.New("content: invalid input")

type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Kind     string
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+": "+p.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

func invalid(kind, field, message string) *ValidationError {
	return &ValidationError{Kind: kind, Problems: []Problem{{Field: field, Message: message}}}
}

type FieldType int

const (
	FieldText FieldType = iota
	FieldLongText
	FieldInt
	FieldBool
	FieldDate
	FieldURL
	FieldEmail
	FieldStringList
)

type Field struct {
	Name     string
	Type     FieldType
	Required bool
	Max      int
}

const (
	defaultTextMax = 300
	longTextMax    = 50000
	listMax        = 100
)

// normalize validates input against fields and returns the cleaned values.
// With partial set, absent fields are skipped instead of reported as missing.
func normalize(kind string, fields []Field, input map[string]any, partial bool) (map[string]any, error) {
	known := make(map[string]Field, len(fields))
	for _, f := range fields {
		known[f.Name] = f
	}

	verr := &ValidationError{Kind: kind}
	out := make(map[string]any, len(input))
	for name := range input {
		if _, ok := known[name]; !ok {
			verr.Problems = append(verr.Problems, Problem{Field: name, Message: "unknown field"})
		}
	}

	for _, f := range fields {
		raw, present := input[f.Name]
		if !present || raw == nil {
			if f.Required && !partial {
				verr.Problems = append(verr.Problems, Problem{Field: f.Name, Message: "is required"})
			}
			continue
		}
		value, err := f.coerce(raw)
		if err != nil {
			verr.Problems = append(verr.Problems, Problem{Field: f.Name, Message: err.Error()})
			continue
		}
		if f.Required && isBlank(value) {
			verr.Problems = append(verr.Problems, Problem{Field: f.Name, Message: "is required"})
			continue
		}
		out[f.Name] = value
	}

	if len(verr.Problems) > 0 {
		return nil, verr
	}
	return out, nil
}

func (f Field) coerce(raw any) (any, error) {
	switch f.Type {
	case FieldText, FieldLongText:
		s, ok := raw.(string)
		if !ok {
			return nil, errors.New("must be a string")
		}
		s = strings.TrimSpace(s)
		if max := f.maxLen(); len(s) > max {
			return nil, fmt.Errorf("must be at most %d bytes", max)
		}
		return s, nil
	case FieldInt:
		switch v := raw.(type) {
		case float64:
			if v != float64(int(v)) {
				return nil, errors.New("must be a whole number")
			}
			return int(v), nil
		case int:
			return v, nil
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, errors.New("must be a whole number")
			}
			return n, nil
		default:
			return nil, errors.New("must be a whole number")
		}
	case FieldBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, errors.New("must be true or false")
		}
		return b, nil
	case FieldDate:
		s, ok := raw.(string)
		if !ok {
			return nil, errors.New("must be a YYYY-MM-DD date")
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return s, nil
		}
		if _, err := time.Parse(time.DateOnly, s); err != nil {
			return nil, errors.New("must be a YYYY-MM-DD date")
		}
		return s, nil
	case FieldURL:
		s, ok := raw.(string)
		if !ok {
			return nil, errors.New("must be a URL")
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return s, nil
		}
		u, err := url.Parse(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, errors.New("must be an http(s) URL")
		}
		return s, nil
	case FieldEmail:
		s, ok := raw.(string)
		if !ok {
			return nil, errors.New("must be an e-mail address")
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return s, nil
		}
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s {
			return nil, errors.New("must be an e-mail address")
		}
		return strings.ToLower(s), nil
	case FieldStringList:
		var items []string
		switch v := raw.(type) {
		case []string:
			items = v
		case []any:
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, errors.New("must be a list of strings")
				}
				items = append(items, s)
			}
		default:
			return nil, errors.New("must be a list of strings")
		}
		if len(items) > listMax {
			return nil, fmt.Errorf("must have at most %d entries", listMax)
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out, nil
	}
	return nil, errors.New("unsupported field type")
}

func (f Field) maxLen() int {
	if f.Max > 0 {
		return f.Max
	}
	if f.Type == FieldLongText {
		return longTextMax
	}
	return defaultTextMax
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case string:
		return v == ""
	case []string:
		return len(v) == 0
	}
	return false
}
