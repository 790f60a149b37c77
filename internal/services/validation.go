package services

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"repurposer/internal/repositories"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.com$`)

var genders = map[string]bool{"male": true, "female": true, "other": true}

// fieldMessages are the client-facing texts for a failed binding tag, keyed
// by json field name.
var fieldMessages = map[string]string{
	"email":       "Valid .com email required",
	"firstName":   "First name required",
	"age":         "Valid age required",
	"gender":      "Valid gender required",
	"password":    "Password required",
	"newPassword": "New password required",
}

// validate is gin's binding engine, so handlers binding a request and
// services checking one apply the same `binding` tags.
var validate = newValidator()

func newValidator() *validator.Validate {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		v = validator.New()
		v.SetTagName("binding")
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	mustRegister(v, "notblank", validators.NotBlank)
	mustRegister(v, "dotcom", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(repositories.NormalizeEmail(fl.Field().String()))
	})
	mustRegister(v, "gender", func(fl validator.FieldLevel) bool {
		return genders[strings.ToLower(strings.TrimSpace(fl.Field().String()))]
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic("register " + tag + " validator: " + err.Error())
	}
}

// validateRequest checks req against its binding tags.
func validateRequest(req any) error {
	return ValidationFromBinding(validate.Struct(req))
}

// ValidationFromBinding turns validator errors into a ValidationError for
// the first failing field. Other errors are returned unchanged.
func ValidationFromBinding(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := fe.Field()
	if fe.Tag() == "max" {
		return invalid(field, field+" is too long")
	}
	if field == "email" && fe.Tag() != "dotcom" {
		return invalid(field, "Missing email")
	}
	msg, ok := fieldMessages[field]
	if !ok {
		msg = "Invalid " + field
	}
	return invalid(field, msg)
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return invalid("email", fieldMessages["email"])
	}
	return nil
}
