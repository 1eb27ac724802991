// Package validation wraps go-playground/validator and turns its errors into
// field/message pairs that are returned to API clients verbatim.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError names the offending JSON field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is returned when a payload fails validation.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

const passwordSpecials = "@$!%*?&"

var (
	domainRe = regexp.MustCompile(`^([a-zA-Z0-9]+(-[a-zA-Z0-9]+)*\.)+[a-zA-Z]{2,6}(/[^\s]*)?$`)

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "password", func(fl validator.FieldLevel) bool {
		return Password(fl.Field().String())
	})
	mustRegister(v, "portfolio", func(fl validator.FieldLevel) bool {
		return PortfolioURL(fl.Field().String())
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// Struct validates s against its `validate` tags. A nil return means valid;
// otherwise the error is Errors, or a plain error for programmer mistakes.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fieldPath(fe),
			Message: message(fe),
		})
	}

	return out
}

// Password requires 8+ characters from [A-Za-z0-9@$!%*?&] with at least one
// uppercase letter, one digit and one special character.
func Password(s string) bool {
	if len(s) < 8 {
		return false
	}

	var upper, digit, special bool
	for _, r := range s {
		switch {
		case 'A' <= r && r <= 'Z':
			upper = true
		case 'a' <= r && r <= 'z':
		case '0' <= r && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}

	return upper && digit && special
}

// PortfolioURL accepts an absolute http(s) URL or a bare domain such as
// "facebook.com/someone".
func PortfolioURL(s string) bool {
	if domainRe.MatchString(s) {
		return true
	}

	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func fieldPath(fe validator.FieldError) string {
	// Namespace is "Struct.field[0]"; drop the struct name.
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	if ns == "" {
		return fe.Field()
	}
	return ns
}

func message(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}

	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s can be a maximum of %s long", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "unique":
		return fe.Field() + " must not contain duplicates"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

var messages = map[string]string{
	"fullName.required":        "Full name is required",
	"fullName.min":             "Full name must be at least 3 characters long",
	"fullName.max":             "Full name can be a maximum of 100 characters",
	"email.required":           "Email is required",
	"email.email":              "Please enter a valid email address",
	"password.required":        "Password is required",
	"password.min":             "Password must be at least 8 characters long",
	"password.password":        "Password must contain at least one uppercase letter, one number, and one special character",
	"bio.required":             "Bio is required",
	"bio.min":                  "Bio must be at least 50 characters long",
	"bio.max":                  "Bio can be a maximum of 2000 characters",
	"portfolioURL.portfolio":   "Portfolio URL must be a valid URL or domain name (e.g., facebook.com)",
	"termsAgreed.required":     "You must agree to the terms and conditions",
	"termsAgreed.eq":           "You must agree to the terms and conditions",
	"preferences.required":     "Preferences are required",
	"preferences.min":          "Please select between 1 and 5 preferences",
	"preferences.max":          "You can only select up to 5 preferences",
	"preferences.unique":       "Preferences must not contain duplicates",
	"experienceLevel.required": "Experience level is required",
	"experienceLevel.oneof":    "Experience level must be one of: beginner, intermediate, experienced",
	"title.required":           "Title is required",
	"title.max":                "Title can be a maximum of 200 characters",
}
