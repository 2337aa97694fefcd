package services

import (
	"github.com/dsz/skyfleet/authz"
	"github.com/dsz/skyfleet/models"
	"github.com/dsz/skyfleet/utils"
)

// Patch applies a partial update to a loaded document. Handlers build one
// from the request body.
type Patch[T any] func(doc *T) error

// validate runs struct validation and converts failures into a Validation
// domain error carrying {field: message} details.
func validate(v interface{}) error {
	err := utils.ValidateStruct(v)
	if err == nil {
		return nil
	}
	fields := utils.GetValidationFields(err)
	if fields == nil {
		return WrapInternal("validation setup", err)
	}
	domainErr := NewDomainError(ErrorTypeValidation, utils.MsgValidationFailed, err)
	for field, msg := range fields {
		domainErr.WithDetail(field, msg)
	}
	return domainErr
}

// fieldError is a Validation domain error for a single field
func fieldError(field, message string) error {
	return NewDomainError(ErrorTypeValidation, utils.MsgValidationFailed, nil).WithDetail(field, message)
}

// invalidBody wraps a patch decoding failure
func invalidBody(err error) error {
	return NewDomainError(ErrorTypeValidation, "Invalid request body", err)
}

// authorize evaluates the policy and converts denials into domain errors
func authorize(policy *authz.Policy, caller *models.Identity, action authz.Action, resource interface{}) error {
	if err := policy.Authorize(caller, action, resource); err != nil {
		return translate(err, ErrInternal, "authorize")
	}
	return nil
}

// missingID is the 400 returned when an operation needs an id and got none
func missingID(resource string) error {
	return NewDomainError(ErrorTypeValidation, resource+" ID is required", nil)
}
