// Package schema describes the typed shape of a workflow State.
//
// A Schema is an ordered list of fields, each with a Type and an optional default
// value. The engine seeds every run from Schema.Defaults and rejects any step delta
// that names an unknown field or carries a value of the wrong type, which keeps the
// merge of deltas into State verifiable.
//
// Basic usage:
//
//	s, err := schema.New(
//	    schema.Field{Name: "quantity", Type: schema.Int()},
//	    schema.Field{Name: "message", Type: schema.String(), Default: ""},
//	    schema.Field{Name: "tags", Type: schema.Slice(schema.String())},
//	)
//
//	if err := s.ValidateDelta(map[string]any{"quantity": 3}); err != nil {
//	    // Handle validation errors
//	}
//
// Schemas can also be parsed from type strings, which is how declarative
// definitions describe their state:
//
//	s, err := schema.ParseTypeMap(map[string]string{
//	    "quantity": "int",
//	    "tags":     "[string]",
//	})
//
// The zero Schema accepts any key and any value.
package schema
