package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"fintrack/internal/core"
)

// SignInRequest is the email/password form and the /api/v1/auth/signin body.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// OTPRequest asks for a code to be sent to Phone.
type OTPRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
}

// OTPVerifyRequest submits a received code.
type OTPVerifyRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
	Code  string `json:"code" validate:"required,numeric,min=4,max=10"`
}

// TransactionRequest is the add and edit form. Amount is the absolute value
// as typed; the sign follows Type.
type TransactionRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Amount   string `json:"amount" validate:"required"`
	Category string `json:"category" validate:"max=50"`
	Type     string `json:"type" validate:"omitempty,oneof=expense income"`
}

func (r *SignInRequest) fromValues(get func(string) string) {
	r.Email = get("email")
	r.Password = get("password")
}

func (r *OTPRequest) fromValues(get func(string) string) {
	r.Phone = get("phone")
}

func (r *OTPVerifyRequest) fromValues(get func(string) string) {
	r.Phone = get("phone")
	r.Code = get("code")
}

func (r *TransactionRequest) fromValues(get func(string) string) {
	r.Name = get("name")
	r.Amount = get("amount")
	r.Category = get("category")
	r.Type = get("type")
}

func (r TransactionRequest) Input() core.TransactionInput {
	return core.TransactionInput{Name: r.Name, Amount: r.Amount, Category: r.Category, Type: r.Type}
}

// ValidationError carries the first failing field in user-facing form.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// newValidator registers the phone rule, which accepts anything
// core.NormalizePhone can turn into an E.164 number under prefix.
func newValidator(prefix string) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		_, err := core.NormalizePhone(fl.Field().String(), prefix)
		return err == nil
	})
	return v
}

// validateStruct runs v over dst and turns the first failure into a
// *ValidationError.
func validateStruct(v *validator.Validate, dst any) error {
	err := v.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	msg := fieldMessage(field, fe.Tag(), fe.Param())
	return &ValidationError{Field: field, Message: strings.ToUpper(msg[:1]) + msg[1:]}
}

func fieldMessage(field, tag, param string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "enter a valid email address"
	case "phone":
		return "enter a valid phone number"
	case "min":
		if field == "password" {
			return fmt.Sprintf("password must be at least %s characters", param)
		}
		return fmt.Sprintf("%s must be at least %s characters", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "numeric":
		return fmt.Sprintf("%s must contain digits only", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
