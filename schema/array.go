package schema

import "encoding/json"

// Array creates a new array schema builder with the specified item type.
func Array(items Builder) *ArrayBuilder {
	return &ArrayBuilder{node: &schemaNode{Type: "array", Items: items.schema()}}
}

// Pair is an array of exactly two items of the given type, e.g. a 2D point.
func Pair(items Builder) *ArrayBuilder {
	return Array(items).MinItems(2).MaxItems(2)
}

// ArrayBuilder constructs array type schemas.
type ArrayBuilder struct {
	node *schemaNode
}

// Desc sets the description.
func (b *ArrayBuilder) Desc(description string) *ArrayBuilder {
	b.node.Description = description
	return b
}

// MinItems sets the minimum number of items.
func (b *ArrayBuilder) MinItems(n int) *ArrayBuilder {
	b.node.MinItems = ptr(n)
	return b
}

// MaxItems sets the maximum number of items.
func (b *ArrayBuilder) MaxItems(n int) *ArrayBuilder {
	b.node.MaxItems = ptr(n)
	return b
}

// Required marks this field as required when used in an object.
func (b *ArrayBuilder) Required() *RequiredField {
	return &RequiredField{builder: b}
}

// Build serializes the schema to json.RawMessage.
func (b *ArrayBuilder) Build() (json.RawMessage, error) { return build(b.node) }

// MustBuild is like Build but panics on error.
func (b *ArrayBuilder) MustBuild() json.RawMessage { return mustBuild(b.node) }

func (b *ArrayBuilder) schema() *schemaNode { return b.node }
