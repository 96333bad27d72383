package decision

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/d-led/iiwsit/pkg/units"
)

// ErrInvalidParams is wrapped by every validation failure.
var ErrInvalidParams = errors.New("invalid parameters")

// FieldError describes one rejected input field.
type FieldError struct {
	Field string `json:"field"` // wire name, e.g. "rateUnit"
	Rule  string `json:"rule"`  // failed rule, e.g. "gte"
	Param string `json:"param,omitempty"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Param != "" {
			parts = append(parts, fmt.Sprintf("%s (%s=%s)", f.Field, f.Rule, f.Param))
		} else {
			parts = append(parts, fmt.Sprintf("%s (%s)", f.Field, f.Rule))
		}
	}
	return fmt.Sprintf("%v: %s", ErrInvalidParams, strings.Join(parts, ", "))
}

func (*ValidationError) Unwrap() error {
	return ErrInvalidParams
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// paramsValidator lazily builds the shared validator with the calculator's custom rules.
func paramsValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		// Report wire names instead of Go field names.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		for tag, fn := range map[string]validator.Func{
			"finite":           finiteValidator,
			"rate_unit":        rateUnitValidator,
			"time_unit":        timeUnitValidator,
			"maintenance_unit": maintenanceUnitValidator,
			"horizon_unit":     horizonUnitValidator,
		} {
			_ = v.RegisterValidation(tag, fn)
		}
		validate = v
	})
	return validate
}

// Validate checks that p is safe to pass to Calculate.
// Calculate itself does not validate: NaN or unknown units propagate through
// the arithmetic, so callers that accept user input should call Validate first.
func Validate(p Params) error {
	err := paramsValidator().Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field: fe.Field(),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}

func finiteValidator(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return false
	}
}

func rateUnitValidator(fl validator.FieldLevel) bool {
	return units.RateUnit(fl.Field().String()).Valid()
}

func timeUnitValidator(fl validator.FieldLevel) bool {
	return units.TimeUnit(fl.Field().String()).Valid()
}

func maintenanceUnitValidator(fl validator.FieldLevel) bool {
	return units.MaintenanceUnit(fl.Field().String()).Valid()
}

func horizonUnitValidator(fl validator.FieldLevel) bool {
	return units.HorizonUnit(fl.Field().String()).Valid()
}
