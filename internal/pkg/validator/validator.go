package validator

// Validator validates structs by their `validate` tags.
type Validator interface {
	Validate(data any) error
}
