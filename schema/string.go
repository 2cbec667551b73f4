package schema

import "encoding/json"

// String creates a new string schema builder.
func String() *StringBuilder {
	return &StringBuilder{node: &schemaNode{Type: "string"}}
}

// StringBuilder constructs string type schemas.
type StringBuilder struct {
	node *schemaNode
}

// Desc sets the description for this field.
func (b *StringBuilder) Desc(description string) *StringBuilder {
	b.node.Description = description
	return b
}

// Enum restricts the value to one of the provided options.
func (b *StringBuilder) Enum(values ...string) *StringBuilder {
	b.node.Enum = make([]any, len(values))
	for i, v := range values {
		b.node.Enum[i] = v
	}
	return b
}

// Required marks this field as required when used in an object.
func (b *StringBuilder) Required() *RequiredField {
	return &RequiredField{builder: b}
}

// Build serializes the schema to json.RawMessage.
func (b *StringBuilder) Build() (json.RawMessage, error) { return build(b.node) }

// MustBuild is like Build but panics on error.
func (b *StringBuilder) MustBuild() json.RawMessage { return mustBuild(b.node) }

func (b *StringBuilder) schema() *schemaNode { return b.node }
