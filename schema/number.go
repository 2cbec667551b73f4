package schema

import "encoding/json"

// Int creates a new integer schema builder.
func Int() *NumericBuilder {
	return &NumericBuilder{node: &schemaNode{Type: "integer"}}
}

// Number creates a new floating-point schema builder.
func Number() *NumericBuilder {
	return &NumericBuilder{node: &schemaNode{Type: "number"}}
}

// NumericBuilder constructs integer and number schemas.
type NumericBuilder struct {
	node *schemaNode
}

// Desc sets the description.
func (b *NumericBuilder) Desc(description string) *NumericBuilder {
	b.node.Description = description
	return b
}

// Min sets the minimum value (inclusive).
func (b *NumericBuilder) Min(n float64) *NumericBuilder {
	b.node.Minimum = ptr(n)
	return b
}

// Max sets the maximum value (inclusive).
func (b *NumericBuilder) Max(n float64) *NumericBuilder {
	b.node.Maximum = ptr(n)
	return b
}

// Required marks this field as required when used in an object.
func (b *NumericBuilder) Required() *RequiredField {
	return &RequiredField{builder: b}
}

// Build serializes the schema to json.RawMessage.
func (b *NumericBuilder) Build() (json.RawMessage, error) { return build(b.node) }

// MustBuild is like Build but panics on error.
func (b *NumericBuilder) MustBuild() json.RawMessage { return mustBuild(b.node) }

func (b *NumericBuilder) schema() *schemaNode { return b.node }
