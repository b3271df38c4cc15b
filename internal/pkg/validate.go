package pkg

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sendbridge/mailer/internal/address"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("mailaddr", validateMailAddr)
}

// validateMailAddr delegates the "mailaddr" tag to internal/address.Valid,
// the same RFC-5322-ish syntactic check the mailer facade applies to
// recipients, so a bad From address is rejected at config load time rather
// than surfacing as a MAIL FROM failure mid-transaction.
func validateMailAddr(fl validator.FieldLevel) bool {
	return address.Valid(fl.Field().String())
}

// Validate runs struct validation using go-playground/validator tags.
func Validate(s interface{}) error {
	return validate.Struct(s)
}

// ValidationErrors extracts a map of field paths to failed validation tags
// from a validator.ValidationErrors error. A path is relative to the
// validated struct: "Email" for a top-level field, "Logging.Level" for a
// nested one.
func ValidationErrors(err error) map[string]string {
	errors := make(map[string]string)
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			name := e.StructNamespace()
			if i := strings.IndexByte(name, '.'); i >= 0 {
				name = name[i+1:]
			}
			errors[name] = e.Tag()
		}
	}
	return errors
}
