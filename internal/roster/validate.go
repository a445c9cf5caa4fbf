package roster

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	phonePattern   = regexp.MustCompile(`^(\+?91)?[6-9]\d{9}$`)
	pinCodePattern = regexp.MustCompile(`^\d{6}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	// Registration only fails on empty tags or nil funcs.
	_ = v.RegisterValidation("in_phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
		return ValidPinCode(fl.Field().String())
	})
	return v
}

// ValidPhone reports whether phone is an Indian mobile number: optional
// +91 or 91 prefix, then ten digits starting with 6-9. Whitespace is ignored.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(strings.Join(strings.Fields(phone), ""))
}

// ValidPinCode reports whether pin is a six digit postal code.
func ValidPinCode(pin string) bool {
	return pinCodePattern.MatchString(pin)
}

var messages = map[Field]map[string]string{
	FieldName: {
		"required": "Name is required",
	},
	FieldPhone: {
		"required": "Phone number is required",
		"in_phone": "Invalid phone number",
	},
	FieldFlatAddress: {
		"required": "Address is required",
	},
	FieldPinCode: {
		"required": "PIN code is required",
		"pincode":  "Invalid PIN code",
	},
}

// check validates a single recipient and returns its field errors.
func check(r Recipient) FieldErrors {
	var fe FieldErrors

	err := validate.Struct(r)
	if err == nil {
		return fe
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// Only reachable on non-struct input; treat every field as invalid.
		for _, f := range Fields {
			fe.set(f, "Invalid value")
		}
		return fe
	}
	for _, e := range verrs {
		field := Field(e.Field())
		msg, ok := messages[field][e.Tag()]
		if !ok {
			msg = "Invalid value"
		}
		fe.set(field, msg)
	}
	return fe
}
