package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// Based on NIST 800-63B Guidelines
	rePassword = regexp.MustCompile(`^.{8,72}$`)
	reUsername = regexp.MustCompile(`^[a-zA-Z0-9_.\-]{3,150}$`)
	rePhone    = regexp.MustCompile(`^\+?[0-9]{8,15}$`)
	reOTPCode  = regexp.MustCompile(`^[0-9]{4,10}$`)
)

// ErrTranslatorNotFound indicates the requested translator is unavailable.
var ErrTranslatorNotFound = errors.New("translator not found")

// V10Validator implements Validator using go-playground/validator v10.
type V10Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// V10ValidationError is a field-to-message map returned when validation fails.
//
// Keys are the wire names of the fields (json tag, then form tag).
type V10ValidationError map[string]string

// Error implements the error interface.
func (vs V10ValidationError) Error() string {
	if len(vs) == 0 {
		return "validation error"
	}

	b, err := json.Marshal(vs)
	if err != nil {
		return fmt.Sprintf("validation error (failed to marshal: %v)", err)
	}
	return string(b)
}

// Values returns the field error map.
func (vs V10ValidationError) Values() map[string]string {
	return vs
}

// NewV10Validator constructs a V10Validator with English translations and custom rules.
func NewV10Validator() (*V10Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(wireName)

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	enTrans, ok := uni.GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}

	if err := enTranslations.RegisterDefaultTranslations(validate, enTrans); err != nil {
		return nil, err
	}

	if err := v10CustomValidation(validate, enTrans); err != nil {
		return nil, err
	}

	return &V10Validator{
		validate:   validate,
		translator: enTrans,
	}, nil
}

// Validate validates a struct and returns a V10ValidationError on failure.
func (v *V10Validator) Validate(data any) error {
	err := v.validate.Struct(data)
	if err == nil {
		return nil
	}

	var validateErrs validator.ValidationErrors
	if !errors.As(err, &validateErrs) {
		return err
	}

	errV10 := make(V10ValidationError, len(validateErrs))
	for _, fe := range validateErrs {
		errV10[fieldKey(fe)] = fe.Translate(v.translator)
	}

	return errV10
}

// fieldKey keeps nested paths readable: "user.phone_no" rather than "phone_no".
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func wireName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

type rule struct {
	tag     string
	re      *regexp.Regexp
	message string
}

var customRules = []rule{
	{tag: "password", re: rePassword, message: "{0} must be 8-72 characters"},
	{tag: "username", re: reUsername, message: "{0} must be 3-150 letters, digits or _ . -"},
	{tag: "phone", re: rePhone, message: "{0} must be a phone number of 8-15 digits"},
	{tag: "otpcode", re: reOTPCode, message: "{0} must contain only digits"},
}

func v10CustomValidation(validate *validator.Validate, enTrans ut.Translator) error {
	for _, r := range customRules {
		re := r.re
		err := validate.RegisterValidation(r.tag, func(fl validator.FieldLevel) bool {
			s, ok := fl.Field().Interface().(string)
			return ok && re.MatchString(s)
		})
		if err != nil {
			return err
		}

		msg := r.message
		err = validate.RegisterTranslation(r.tag, enTrans,
			func(t ut.Translator) error {
				return t.Add(r.tag, msg, false)
			},
			func(t ut.Translator, fe validator.FieldError) string {
				s, terr := t.T(fe.Tag(), fe.Field())
				if terr != nil {
					return fe.Error()
				}
				return s
			},
		)
		if err != nil {
			return err
		}
	}

	return nil
}
