package schema

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Object creates a new object schema builder.
func Object() *ObjectBuilder {
	return &ObjectBuilder{
		node: &schemaNode{
			Type:       "object",
			Properties: make(map[string]*schemaNode),
		},
	}
}

// ObjectBuilder constructs object type schemas.
type ObjectBuilder struct {
	node *schemaNode
}

// Desc sets the description for the object itself.
func (b *ObjectBuilder) Desc(description string) *ObjectBuilder {
	b.node.Description = description
	return b
}

// Field adds a field with its schema.
// The field argument can be a Builder or a *RequiredField.
func (b *ObjectBuilder) Field(name string, field any) *ObjectBuilder {
	switch f := field.(type) {
	case *RequiredField:
		b.set(name, f.builder.schema())
		if !slices.Contains(b.node.Required, name) {
			b.node.Required = append(b.node.Required, name)
		}
	case Builder:
		b.set(name, f.schema())
	default:
		panic(fmt.Sprintf("schema: Field %q requires a Builder or *RequiredField, got %T", name, field))
	}
	return b
}

func (b *ObjectBuilder) set(name string, n *schemaNode) {
	if _, exists := b.node.Properties[name]; !exists {
		b.node.PropertyOrdering = append(b.node.PropertyOrdering, name)
	}
	b.node.Properties[name] = n
}

// Required marks this object as required when nested in another object.
func (b *ObjectBuilder) Required() *RequiredField {
	return &RequiredField{builder: b}
}

// Build serializes the schema to json.RawMessage.
func (b *ObjectBuilder) Build() (json.RawMessage, error) { return build(b.node) }

// MustBuild is like Build but panics on error.
func (b *ObjectBuilder) MustBuild() json.RawMessage { return mustBuild(b.node) }

func (b *ObjectBuilder) schema() *schemaNode { return b.node }

// RequiredField wraps a Builder to mark it as required in an object.
type RequiredField struct {
	builder Builder
}
