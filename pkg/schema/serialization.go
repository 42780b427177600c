package schema

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON serializes the schema as a map of field names to type strings.
// Used when declared shapes are exposed over introspection surfaces; schemas
// are code-built and never parsed back.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}

	raw := make(map[string]string, len(s))
	for key, typ := range s {
		if typ == nil {
			return nil, fmt.Errorf("field %s: type is nil", key)
		}
		raw[key] = typ.Name()
	}

	return json.Marshal(raw)
}
