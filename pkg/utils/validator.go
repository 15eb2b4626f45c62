package utils

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	controlChars  = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	unsafeNameChr = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)
)

// FieldViolation is one failed validation tag
type FieldViolation struct {
	Field string
	Tag   string
	Param string
}

// NewValidator returns a validator that compares decimal amounts numerically
// and reports fields by their json name
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Violations unpacks validator errors. The second value is false for any other error.
func Violations(err error) ([]FieldViolation, bool) {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil, false
	}
	out := make([]FieldViolation, 0, len(errs))
	for _, fe := range errs {
		out = append(out, FieldViolation{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()})
	}
	return out, true
}

// HumanizeField turns a json field name into a label, e.g. sub_category -> Sub category
func HumanizeField(name string) string {
	label := strings.ReplaceAll(name, "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// SanitizeString removes control characters
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}

// SafeName keeps only letters, digits, hyphens and underscores so the result
// can be used as a single path element
func SafeName(s string) string {
	return unsafeNameChr.ReplaceAllString(s, "")
}
