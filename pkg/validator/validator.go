package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/milan604/reqfacade/pkg/apperr"

	gvalidator "github.com/go-playground/validator/v10"
)

// Validator wraps go-playground validator and reports failures as
// *apperr.AppError with one suggestion per offending field.
type Validator struct {
	v                *gvalidator.Validate
	tagErrorBuilders map[string]func(fe gvalidator.FieldError) string
}

// New creates a Validator that names fields after their mapstructure/json tags.
func New() *Validator {
	v := gvalidator.New(gvalidator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"mapstructure", "json"} {
			if name := getTagName(f, tag); name != "" {
				return name
			}
		}
		return f.Name
	})

	vi := &Validator{
		v:                v,
		tagErrorBuilders: make(map[string]func(gvalidator.FieldError) string),
	}
	vi.RegisterTagError("required", func(fe gvalidator.FieldError) string {
		return fmt.Sprintf("%s is required", fe.Field())
	})
	vi.RegisterTagError("url", func(fe gvalidator.FieldError) string {
		return fmt.Sprintf("%s must be an absolute URL", fe.Field())
	})
	vi.RegisterTagError("gte", func(fe gvalidator.FieldError) string {
		return fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param())
	})
	return vi
}

func getTagName(f reflect.StructField, tagName string) string {
	tagValue := f.Tag.Get(tagName)
	if tagValue == "-" {
		return ""
	}
	return strings.SplitN(tagValue, ",", 2)[0]
}

// RegisterValidation registers a custom validator (name) to the engine.
func (vi *Validator) RegisterValidation(tag string, fn gvalidator.Func) error {
	return vi.v.RegisterValidation(tag, fn)
}

// RegisterTagError overrides the message produced for a validation tag.
func (vi *Validator) RegisterTagError(tag string, builder func(gvalidator.FieldError) string) {
	vi.tagErrorBuilders[tag] = builder
}

// Struct validates s and returns nil or an invalid_config error.
func (vi *Validator) Struct(s any) *apperr.AppError {
	return vi.ParseError(vi.v.Struct(s))
}

// ParseError converts a validator error into *apperr.AppError.
func (vi *Validator) ParseError(err error) *apperr.AppError {
	if err == nil {
		return nil
	}

	var verrs gvalidator.ValidationErrors
	if errors.As(err, &verrs) {
		appErr := apperr.New(apperr.ErrorCodeInvalidConfig)
		for _, fe := range verrs {
			appErr.AddSuggestion(fe.Field(), vi.buildMessageForField(fe))
		}
		return appErr
	}

	return apperr.New(apperr.ErrorCodeInvalidConfig).Wrap(err)
}

func (vi *Validator) buildMessageForField(fe gvalidator.FieldError) string {
	if b, ok := vi.tagErrorBuilders[fe.Tag()]; ok && b != nil {
		return b(fe)
	}
	if fe.Param() != "" {
		return fmt.Sprintf("field %s failed on '%s' validation (param=%s)", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("field %s failed on '%s' validation", fe.Field(), fe.Tag())
}
