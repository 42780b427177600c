package schema

// Schema is a map of field names to their expected types.
// Example: {"query": String(), "retries": Int()}
type Schema map[string]Type

// Validate checks if data conforms to the schema.
// Returns an error with all validation failures found.
func Validate(schema Schema, data map[string]any) error {
	if len(schema) == 0 {
		// No schema = no validation
		return nil
	}

	var errs []error

	// Validate each field in the schema
	for fieldName, fieldType := range schema {
		value, exists := data[fieldName]
		if !exists {
			errs = append(errs, &ValidationError{
				Key:    fieldName,
				Reason: "required",
				Value:  nil,
			})
			continue
		}

		// Validate the value against the type
		if err := fieldType.Validate(value); err != nil {
			errs = append(errs, &ValidationError{
				Key:    fieldName,
				Reason: err.Error(),
				Value:  value,
			})
		}
	}

	// If there are errors, aggregate them
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}

	return nil
}

// Fields returns the field names declared by the schema.
// Useful for documenting a step's declared input shape.
func Fields(schema Schema) []string {
	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	return names
}
