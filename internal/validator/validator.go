// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("payment_status", validatePaymentStatus)
		_ = v.RegisterValidation("income_status", validateIncomeStatus)
		_ = v.RegisterValidation("attribution_type", validateAttributionType)
	}
}

func validatePaymentStatus(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "scheduled", "paid", "cancelled":
		return true
	}
	return false
}

func validateIncomeStatus(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "scheduled", "received", "cancelled":
		return true
	}
	return false
}

func validateAttributionType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "manual", "automatic":
		return true
	}
	return false
}
