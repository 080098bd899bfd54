package service

import (
	"errors"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/roster-api/internal/models"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
	"github.com/noah-isme/roster-api/pkg/normalize"
)

// Stable rule identifiers reported in validation details.
const (
	RuleRequired    = "required"
	RuleFullName    = "full_name"
	RuleTaxIDDigits = "tax_id_digits"
	RulePhoneDigits = "phone_digits"
	RuleBirthDate   = "birth_date"
	RuleDate        = "date"
	RuleShift       = "shift"
	RuleAgeRange    = "age_range"
	RuleGTE         = "gte"
)

// registerRosterRules installs the roster tags on v and makes it report json field names.
func registerRosterRules(v *validator.Validate) *validator.Validate {
	if v == nil {
		v = validator.New()
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation(RuleFullName, func(fl validator.FieldLevel) bool {
		return isFullName(fl.Field().String())
	})
	_ = v.RegisterValidation(RuleTaxIDDigits, func(fl validator.FieldLevel) bool {
		return len(normalize.Digits(fl.Field().String())) == 11
	})
	_ = v.RegisterValidation(RulePhoneDigits, func(fl validator.FieldLevel) bool {
		n := len(normalize.Digits(fl.Field().String()))
		return n == 10 || n == 11
	})
	_ = v.RegisterValidation(RuleBirthDate, func(fl validator.FieldLevel) bool {
		_, err := models.ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation(RuleShift, func(fl validator.FieldLevel) bool {
		_, err := models.ParseShift(fl.Field().String())
		return err == nil
	})
	return v
}

// isFullName requires at least two tokens and three characters once trimmed.
func isFullName(s string) bool {
	s = strings.TrimSpace(s)
	return strings.ContainsAny(s, " \t") && utf8.RuneCountInString(s) >= 3
}

// validationError converts validator output into a VALIDATION_ERROR listing every violated rule.
func validationError(message string, err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	violations := make([]appErrors.FieldViolation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, appErrors.FieldViolation{Field: fe.Field(), Rule: fe.Tag()})
	}
	return appErrors.Validation(message, violations...)
}
