// Package validator validates configuration structs and renders failures as
// readable English messages.
package validator

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Validator validates structs tagged with `validate:"..."`.
type Validator interface {
	Struct(s any) error
	StructCtx(ctx context.Context, s any) error
}

// Validate is the shared instance used by config loading.
var Validate Validator = New()

// FieldError is one failed rule.
type FieldError struct {
	Namespace string
	Tag       string
	Message   string
}

// Errors is returned when at least one rule failed.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Message)
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether namespace (e.g. "Config.Storage.Driver") failed.
func (e Errors) Has(namespace string) bool {
	for _, fe := range e {
		if fe.Namespace == namespace {
			return true
		}
	}
	return false
}

type impl struct {
	v     *validator.Validate
	trans ut.Translator
}

// New builds a validator with English translations registered.
func New() Validator {
	locale := en.New()
	trans, _ := ut.New(locale, locale).GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	return &impl{v: v, trans: trans}
}

func (i *impl) Struct(s any) error {
	return i.StructCtx(context.Background(), s)
}

func (i *impl) StructCtx(ctx context.Context, s any) error {
	if s == nil {
		return errors.New("validator: target cannot be nil")
	}
	return i.translate(i.v.StructCtx(ctx, s))
}

func (i *impl) translate(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := make(Errors, 0, len(ves))
	for _, fe := range ves {
		out = append(out, FieldError{
			Namespace: fe.Namespace(),
			Tag:       fe.Tag(),
			Message:   fe.Translate(i.trans),
		})
	}
	return out
}
