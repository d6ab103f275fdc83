// Package schema checks the shape of a context root.
//
// A Schema maps identifiers to types. Identifiers are resolved against a
// tree.Object on the raw slot values, so checking a live root never runs a
// trap and never notifies a listener.
//
//	s := schema.Schema{
//	    "user":    schema.Shape(schema.Schema{"name": schema.String(), "email": schema.Optional(schema.String())}),
//	    "items":   schema.ArrayOf(schema.Int()),
//	    "retries": schema.Int(),
//	}
//	for _, v := range schema.Violations(schema.Validate(s, root)) {
//	    fmt.Println(v.ID, v.Reason)
//	}
//
// In JSON and YAML documents a type is written as an expression: one of
// string, int, float, bool, object or any, "[T]" for arrays of T and "T?"
// when the value may be null or missing. A nested mapping stands for a Shape
// and a one-item sequence for an array of its item:
//
//	schema:
//	  user: {name: string, email: string?}
//	  items: [int]
package schema
