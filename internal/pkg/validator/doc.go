// Package validator validates request and dependency structs.
//
// Callers depend on the Validator interface. The go-playground/validator
// implementation reports failures as a V10ValidationError keyed by the
// field's wire name and adds the password, username, phone and otpcode rules.
package validator
