package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/satyamkes/JanSahyog/internal/models"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

var (
	once       sync.Once
	validate   *validator.Validate
	translator ut.Translator
)

// messages that replace the generic "is a required field" wording
var requiredMessages = map[string]string{
	"name":        "Scheme name is required",
	"description": "Scheme description is required",
}

func get() (*validator.Validate, ut.Translator) {
	once.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		translator, _ = uni.GetTranslator("en")

		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})

		_ = en_translations.RegisterDefaultTranslations(validate, translator)
	})
	return validate, translator
}

// toValidationError maps the first validator failure to a ValidationError.
func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	_, trans := get()

	fe := verrs[0]
	// drop the top-level type name: "Scheme.eligibilityCriteria.maxAge"
	field := fe.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}
	msg := fe.Translate(trans)
	if fe.Tag() == "required" {
		if custom, ok := requiredMessages[field]; ok {
			msg = custom
		}
	}
	return &ValidationError{Field: field, Message: msg}
}

// ValidateScheme checks a scheme before it is stored.
func ValidateScheme(scheme models.Scheme) error {
	v, _ := get()
	if err := v.Struct(scheme); err != nil {
		return toValidationError(err)
	}

	c := scheme.EligibilityCriteria
	if c.MaxAge < c.MinAge {
		return &ValidationError{
			Field:   "eligibilityCriteria.maxAge",
			Message: "must not be less than minAge",
		}
	}

	if c.MaxIncome != nil && *c.MaxIncome < c.MinIncome {
		return &ValidationError{
			Field:   "eligibilityCriteria.maxIncome",
			Message: "must not be less than minIncome",
		}
	}

	return nil
}

// ValidateProfile checks the values of an applicant profile. Presence of the
// required fields is checked by the caller.
func ValidateProfile(profile models.ApplicantProfile) error {
	v, _ := get()
	if err := v.Struct(profile); err != nil {
		return toValidationError(err)
	}
	return nil
}

func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}
