// Package schema provides a type-safe validation system for declared input
// shapes.
//
// It defines a simple type system with built-in types (string, int, float,
// bool) and support for custom validators. Schemas map field names to types,
// enabling runtime validation of trigger data and step inputs before a
// pipeline runs.
//
// Basic usage:
//
//	shape := schema.Schema{
//	    "query": schema.String(),
//	}
//
//	data := map[string]any{
//	    "query": "What is the capital of Japan?",
//	}
//
//	if err := schema.Validate(shape, data); err != nil {
//	    // Handle validation errors
//	}
//
// Custom validators can be registered for domain-specific validation:
//
//	nonEmpty := schema.Custom("non_empty_string", func(v any) error {
//	    s, ok := v.(string)
//	    if !ok {
//	        return fmt.Errorf("expected string")
//	    }
//	    if s == "" {
//	        return fmt.Errorf("must not be empty")
//	    }
//	    return nil
//	})
//
// This package is designed to be library-agnostic, with zero external
// dependencies beyond the Go standard library. Validation failures aggregate
// into a single error listing every offending field.
package schema
