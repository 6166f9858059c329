package pkg

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// FieldType is the JSON type a schema field accepts.
type FieldType int

const (
	TypeString FieldType = iota + 1
	TypeNumber
	TypeBoolean
)

// Constraint names reported in FieldError.Errors.
const (
	ConstraintNotEmpty  = "isNotEmpty"
	ConstraintString    = "isString"
	ConstraintNumber    = "isNumber"
	ConstraintBoolean   = "isBoolean"
	ConstraintLength    = "isLength"
	ConstraintEmail     = "isEmail"
	ConstraintMatches   = "matches"
	ConstraintMin       = "min"
	ConstraintNumeric   = "isNumberString"
	ConstraintWhitelist = "whitelistValidation"
)

var validate = validator.New()

// Check is a named constraint applied to a value that already passed the
// field's type check.
type Check struct {
	Constraint string
	Message    string
	test       func(v any) bool
}

// Field declares one accepted request field.
type Field struct {
	Name            string
	Type            FieldType
	Required        bool
	RequiredMessage string
	TypeMessage     string
	Checks          []Check
}

// Schema is an ordered set of declared fields. It is immutable after
// construction and safe for concurrent use.
type Schema struct {
	fields []Field
	index  map[string]struct{}
}

// NewSchema builds a Schema from fields.
// Panics on an empty or duplicate field name.
func NewSchema(fields ...Field) *Schema {
	s := &Schema{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]struct{}, len(fields)),
	}
	for _, f := range fields {
		if f.Name == "" {
			panic("pkg.NewSchema: field name must not be empty")
		}
		if _, dup := s.index[f.Name]; dup {
			panic(fmt.Sprintf("pkg.NewSchema: duplicate field %q", f.Name))
		}
		s.index[f.Name] = struct{}{}
		s.fields = append(s.fields, f)
	}
	return s
}

// Fields returns the declared fields in declaration order.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Partial returns a copy of s in which no field is required, for partial updates.
func (s *Schema) Partial() *Schema {
	fields := s.Fields()
	for i := range fields {
		fields[i].Required = false
	}
	return NewSchema(fields...)
}

// Validate projects body onto the declared fields and runs every rule.
//
// Undeclared properties are rejected. On success it returns a new map holding
// only declared, non-empty fields with numbers normalized to float64; on
// failure it returns one FieldError per offending property, declared fields
// first, then undeclared ones sorted by name.
func (s *Schema) Validate(body map[string]any) (map[string]any, []FieldError) {
	out := make(map[string]any, len(s.fields))
	var errs []FieldError

	for _, f := range s.fields {
		failed := make(map[string]string)
		v, present := body[f.Name]

		switch {
		case isEmpty(v, present):
			if f.Required {
				failed[ConstraintNotEmpty] = f.RequiredMessage
			}
		default:
			val, ok := coerce(f.Type, v)
			if !ok {
				failed[typeConstraint(f.Type)] = f.TypeMessage
				break
			}
			for _, chk := range f.Checks {
				if !chk.test(val) {
					failed[chk.Constraint] = chk.Message
				}
			}
			if len(failed) == 0 {
				out[f.Name] = val
			}
		}

		if len(failed) > 0 {
			errs = append(errs, FieldError{Property: f.Name, Errors: failed})
		}
	}

	var extra []string
	for k := range body {
		if _, ok := s.index[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		errs = append(errs, FieldError{
			Property: k,
			Errors:   map[string]string{ConstraintWhitelist: fmt.Sprintf("property %s should not exist", k)},
		})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func isEmpty(v any, present bool) bool {
	if !present || v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func typeConstraint(t FieldType) string {
	switch t {
	case TypeNumber:
		return ConstraintNumber
	case TypeBoolean:
		return ConstraintBoolean
	default:
		return ConstraintString
	}
}

// coerce checks v against t and normalizes numbers to float64.
func coerce(t FieldType, v any) (any, bool) {
	switch t {
	case TypeString:
		s, ok := v.(string)
		return s, ok
	case TypeBoolean:
		b, ok := v.(bool)
		return b, ok
	case TypeNumber:
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case json.Number:
			f, err := n.Float64()
			return f, err == nil
		}
	}
	return nil, false
}

// Length requires a string of min..max characters (runes). max <= 0 means unbounded.
func Length(min, max int, message string) Check {
	tag := "min=" + strconv.Itoa(min)
	if max > 0 {
		tag += ",max=" + strconv.Itoa(max)
	}
	return Check{Constraint: ConstraintLength, Message: message, test: varTest(tag)}
}

// Email requires a syntactically valid email address.
func Email(message string) Check {
	return Check{Constraint: ConstraintEmail, Message: message, test: varTest("email")}
}

// Digits requires a string made only of ASCII digits.
func Digits(message string) Check {
	return Check{Constraint: ConstraintNumeric, Message: message, test: varTest("number")}
}

// Min requires a number greater than or equal to min.
func Min(min float64, message string) Check {
	tag := "min=" + strconv.FormatFloat(min, 'f', -1, 64)
	return Check{Constraint: ConstraintMin, Message: message, test: varTest(tag)}
}

// Matches requires a string matching re.
func Matches(re *regexp.Regexp, message string) Check {
	return Check{
		Constraint: ConstraintMatches,
		Message:    message,
		test: func(v any) bool {
			s, ok := v.(string)
			return ok && re.MatchString(s)
		},
	}
}

func varTest(tag string) func(v any) bool {
	return func(v any) bool {
		return validate.Var(v, tag) == nil
	}
}
