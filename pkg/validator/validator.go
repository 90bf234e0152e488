package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/hostbay/sitehost-api/internal/model"
)

// RegisterCustom wires domain validations into gin's binding engine.
// Must run once before the router starts handling requests.
func RegisterCustom() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	// "plan" accepts only the paid renewal plans; trial is never
	// requestable by an owner.
	return v.RegisterValidation("plan", func(fl validator.FieldLevel) bool {
		_, ok := model.PlanDuration(fl.Field().String())
		return ok
	})
}
