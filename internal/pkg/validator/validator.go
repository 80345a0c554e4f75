package validator

// Validator validates structs and single values.
type Validator interface {
	// Validate checks struct tags on data.
	Validate(data any) error
	// Var checks one value against tag, reporting failures under field.
	Var(field string, value any, tag string) error
}
