package validator

import "github.com/go-playground/validator/v10"

func registerFn(tag string, fn func(fl validator.FieldLevel) bool) func(v *validator.Validate) {
	return func(v *validator.Validate) {
		_ = v.RegisterValidation(tag, fn)
	}
}

func NewJobValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("job_type", jobTypeValidator),
		},
		{
			Rule: registerFn("deploy_mode", deployModeValidator),
		},
		{
			Rule: registerFn("job_id", uuidValidator),
		},
		{
			Rule: registerFn("device_id", uuidValidator),
		},
		{
			Rule: registerFn("label", labelValidator),
		},
	}
}

func NewDeviceValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("device_name", deviceNameValidator),
		},
		{
			Rule: registerFn("endpoint", endpointValidator),
		},
		{
			Rule: registerFn("label", labelValidator),
		},
	}
}
