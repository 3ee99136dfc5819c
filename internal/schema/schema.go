// Package schema declares the writable fields of each record type and projects
// untrusted input (form posts, JSON bodies, spreadsheet rows) onto them.
//
// Only fields named in a Schema are ever written. Anything else in the input
// is dropped, so callers can pass request data through without worrying about
// id, timestamps or other columns being overwritten.
package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mrlokans/librarian/internal/errors"
	"github.com/mrlokans/librarian/internal/validation"
)

type Kind int

const (
	KindString Kind = iota
	KindInt
	KindDecimal
	KindDate
	// KindRef is a foreign key. Existence of the referenced row is checked by the repository.
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindDecimal:
		return "decimal"
	case KindDate:
		return "date"
	case KindRef:
		return "ref"
	default:
		return "string"
	}
}

// Field is one allow-listed column.
type Field struct {
	Name     string // database column and input key
	Kind     Kind
	Required bool
	// Rules are validator tags applied to the parsed value, e.g. "email,max=255".
	Rules string
	// Ref is the referenced table for KindRef fields.
	Ref string
	// Secret fields are writable but never exported.
	Secret bool
	// Normalize runs after validation, for example to hash a password.
	Normalize func(string) (string, error)
}

type Schema struct {
	Entity string
	Fields []Field
}

// Values is a projected, typed set of column values ready to be written.
type Values map[string]any

type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

// DateLayouts are tried in order when parsing date fields.
var DateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"01-02-06",
	"1/2/06",
	"1/2/2006",
}

var validate = validation.New()

// Field returns the named field.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Columns returns the allow-listed column names in declaration order.
func (s Schema) Columns() []string {
	cols := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		cols = append(cols, f.Name)
	}
	return cols
}

// ExportFields returns the fields that may leave the system.
func (s Schema) ExportFields() []Field {
	out := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if !f.Secret {
			out = append(out, f)
		}
	}
	return out
}

// Refs returns the foreign key fields.
func (s Schema) Refs() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Kind == KindRef {
			out = append(out, f)
		}
	}
	return out
}

// Project keeps the allow-listed keys of input and converts them to typed values.
//
// In ModeCreate every required field must be present and non-blank. In
// ModeUpdate absent fields are left untouched, but a required field that is
// present must not be blank. A blank optional field is cleared, except Secret
// fields, which keep their stored value. All field problems are reported
// together.
func (s Schema) Project(input map[string]string, mode Mode) (Values, error) {
	values := make(Values)
	problems := make(map[string]string)

	for _, f := range s.Fields {
		raw, present := input[f.Name]
		raw = strings.TrimSpace(raw)

		if !present {
			if mode == ModeCreate && f.Required {
				problems[f.Name] = "is required"
			}
			continue
		}

		if raw == "" {
			if f.Required {
				problems[f.Name] = "is required"
				continue
			}
			if mode == ModeUpdate && !f.Secret {
				values[f.Name] = blank(f.Kind)
			}
			continue
		}

		v, err := parse(f.Kind, raw)
		if err != nil {
			problems[f.Name] = err.Error()
			continue
		}

		if msg, ok := validate.Var(v, f.Rules); !ok {
			problems[f.Name] = msg
			continue
		}

		if f.Normalize != nil {
			normalized, err := f.Normalize(raw)
			if err != nil {
				problems[f.Name] = err.Error()
				continue
			}
			v = normalized
		}

		values[f.Name] = v
	}

	if len(problems) > 0 {
		return nil, errors.ValidationWithDetails(fmt.Sprintf("invalid %s", s.Entity), problems)
	}
	return values, nil
}

func parse(kind Kind, raw string) (any, error) {
	switch kind {
	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("must be a whole number")
		}
		return n, nil
	case KindDecimal:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("must be a number")
		}
		return n, nil
	case KindDate:
		t, err := ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("must be a date (YYYY-MM-DD)")
		}
		return t, nil
	case KindRef:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("must be a valid id")
		}
		return uint(n), nil
	default:
		return raw, nil
	}
}

func blank(kind Kind) any {
	switch kind {
	case KindInt:
		return int64(0)
	case KindDecimal:
		return float64(0)
	case KindDate, KindRef:
		return nil
	default:
		return ""
	}
}

// ParseDate accepts any of DateLayouts.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

// FormatValue renders a stored value for export.
func FormatValue(kind Kind, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format("2006-01-02")
	case *time.Time:
		if x == nil || x.IsZero() {
			return ""
		}
		return x.Format("2006-01-02")
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case uint:
		if kind == KindRef && x == 0 {
			return ""
		}
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
