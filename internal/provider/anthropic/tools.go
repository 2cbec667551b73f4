package anthropic

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/parmira/forensic"
)

// reportTool builds the forced tool whose input schema is the report schema.
func reportTool() (anthropic.ToolUnionParam, anthropic.ToolChoiceUnionParam) {
	var schema map[string]any
	_ = json.Unmarshal(forensic.ReportSchema(), &schema)

	var required []string
	if reqVal, ok := schema["required"].([]any); ok {
		for _, r := range reqVal {
			if s, ok := r.(string); ok {
				required = append(required, s)
			}
		}
	}

	tool := anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        reportToolName,
			Description: anthropic.String("Submit the completed forensic report"),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema["properties"],
				Required:   required,
			},
		},
	}

	choice := anthropic.ToolChoiceUnionParam{
		OfTool: &anthropic.ToolChoiceToolParam{Name: reportToolName},
	}

	return tool, choice
}
