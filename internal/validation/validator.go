package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator with custom rules and error formatting
type Validator struct {
	validate *validator.Validate
}

var (
	instance *Validator
	once     sync.Once
)

// sourceRefPattern accepts workbook names without path separators or dot-dot.
var sourceRefPattern = regexp.MustCompile(`^[\p{L}\p{N}_\-. ]{1,128}$`)

// Get returns the shared validator instance
func Get() *Validator {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New creates a validator with the custom rules registered
func New() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("source_ref", validateSourceRef)

	// Report field names as they appear on the wire (json, then yaml)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "yaml"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	return &Validator{validate: v}
}

// Struct validates s and flattens field errors into one readable error.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}

// ValidSourceRef reports whether ref is a usable workbook reference.
func ValidSourceRef(ref string) bool {
	return sourceRefPattern.MatchString(ref) && !strings.Contains(ref, "..")
}

func validateSourceRef(fl validator.FieldLevel) bool {
	return ValidSourceRef(fl.Field().String())
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "source_ref":
		return field + " must be a plain workbook name"
	case "uuid4":
		return field + " must be a UUID"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
