package middleware

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// StructValidator plugs go-playground/validator into fiber's binder so every
// Bind().Body / Bind().Query call validates `validate` tags.
type StructValidator struct {
	v *validator.Validate
}

func NewStructValidator() *StructValidator {
	return &StructValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (s *StructValidator) Validate(out any) error {
	return s.v.Struct(out)
}

type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// BindError turns a binder failure into a 400 AppError, listing the failed
// fields when the cause is a validation error.
func BindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field: strings.ToLower(fe.Field()),
				Rule:  fe.Tag(),
				Param: fe.Param(),
			})
		}
		return NewAppError(fiber.StatusBadRequest, "Validation failed", fields, err)
	}
	return NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
}
