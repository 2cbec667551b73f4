package google

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/parmira/forensic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

const reportJSON = `{"verdict":"ANOMALY_DETECTED","forensic_report":{"failure_index":2,"compromised_hardware":["logic_board"],"physics_breach_summary":"gain flip"},"simulation_reset_parameters":{"spawn_at_pos":[125,115],"injected_truth":{"g":0.08,"rho":1.225,"mass":2,"target":[800,375],"gain":0.05}},"imagePrompt":"board","pythonLogs":["ok"]}`

func TestAuditConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := auditConfig(forensic.ApplyOptions())

		assert.Equal(t, "application/json", cfg.ResponseMIMEType)
		require.NotNil(t, cfg.ResponseSchema)
		assert.Equal(t, genai.TypeObject, cfg.ResponseSchema.Type)

		require.Len(t, cfg.Tools, 1)
		assert.NotNil(t, cfg.Tools[0].CodeExecution)

		require.NotNil(t, cfg.ThinkingConfig)
		require.NotNil(t, cfg.ThinkingConfig.ThinkingBudget)
		assert.Equal(t, int32(forensic.DefaultThinkingBudget), *cfg.ThinkingConfig.ThinkingBudget)

		require.NotNil(t, cfg.SystemInstruction)
		require.Len(t, cfg.SystemInstruction.Parts, 1)
		assert.Contains(t, cfg.SystemInstruction.Parts[0].Text, "THE PARMIRA UNIVERSE CONSTANTS")
	})

	t.Run("options disable tools and thinking", func(t *testing.T) {
		cfg := auditConfig(forensic.ApplyOptions(forensic.WithoutCodeExecution(), forensic.WithThinkingBudget(0)))
		assert.Empty(t, cfg.Tools)
		assert.Nil(t, cfg.ThinkingConfig)
	})
}

func TestImageConfig(t *testing.T) {
	cfg := imageConfig(forensic.ApplyImageOptions())
	require.NotNil(t, cfg.ImageConfig)
	assert.Equal(t, "16:9", cfg.ImageConfig.AspectRatio)
}

func TestToPayload(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking about gain", Thought: true},
				{ExecutableCode: &genai.ExecutableCode{Code: "plot()"}},
				{CodeExecutionResult: &genai.CodeExecutionResult{Output: "breach at 2\n"}},
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte{0x89, 'P'}}},
				{Text: reportJSON},
				nil,
			}}},
			{Content: nil},
		},
	}

	p := toPayload(resp)
	require.Len(t, p.Candidates, 1)
	parts := p.Candidates[0].Parts
	require.Len(t, parts, 4)
	assert.True(t, parts[0].Thought)
	assert.Equal(t, "breach at 2", parts[1].CodeOutput)
	assert.Equal(t, "image/png", parts[2].InlineData.MIMEType)
	assert.Equal(t, reportJSON, parts[3].Text)

	result, err := forensic.Decode(p)
	require.NoError(t, err)
	assert.Equal(t, forensic.VerdictAnomaly, result.Report.Verdict)
	assert.Equal(t, []string{"breach at 2"}, result.Trace)
	require.NotNil(t, result.Plot)
	assert.Equal(t, []byte{0x89, 'P'}, result.Plot.Data)
}

func TestToPayload_Nil(t *testing.T) {
	assert.Empty(t, toPayload(nil).Candidates)
}

func TestFirstImage(t *testing.T) {
	t.Run("defaults mime type", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "here is your image"},
				{InlineData: &genai.Blob{Data: []byte{1}}},
			}}},
		}}
		img := firstImage(resp)
		require.NotNil(t, img)
		assert.Equal(t, "image/png", img.MIMEType)
	})

	t.Run("no inline data", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "sorry"}}}},
		}}
		assert.Nil(t, firstImage(resp))
		assert.Nil(t, firstImage(&genai.GenerateContentResponse{}))
	})
}

func TestBlocked(t *testing.T) {
	assert.NoError(t, blocked(&genai.GenerateContentResponse{}))

	err := blocked(&genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
	})
	var be *BlockedError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "request blocked: SAFETY", err.Error())
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, wrapError(nil))

	network := errors.New("dial tcp: connection refused")
	assert.Same(t, network, wrapError(network))

	tests := []struct {
		code      int
		transient bool
		permanent bool
		userInput bool
	}{
		{429, true, false, false},
		{503, true, false, false},
		{401, false, true, false},
		{400, false, false, true},
	}
	for _, tt := range tests {
		err := wrapError(genai.APIError{Code: tt.code, Message: "boom"})
		assert.Equal(t, tt.transient, forensic.IsTransient(err))
		assert.Equal(t, tt.permanent, forensic.IsPermanent(err))
		assert.Equal(t, tt.userInput, forensic.IsUserInput(err))
		assert.Equal(t, tt.code, forensic.StatusCodeOf(err))
	}
}

func TestConvertJSONSchemaToGenaiSchema(t *testing.T) {
	s := ConvertJSONSchemaToGenaiSchema(forensic.ReportSchema())
	require.NotNil(t, s)

	assert.Equal(t, []string{"verdict", "forensic_report", "simulation_reset_parameters", "imagePrompt", "pythonLogs"}, s.PropertyOrdering)
	assert.Equal(t, []string{"ANOMALY_DETECTED", "NOMINAL_TRUTH"}, s.Properties["verdict"].Enum)

	spawn := s.Properties["simulation_reset_parameters"].Properties["spawn_at_pos"]
	assert.Equal(t, genai.TypeArray, spawn.Type)
	assert.Equal(t, genai.TypeNumber, spawn.Items.Type)
	require.NotNil(t, spawn.MinItems)
	assert.Equal(t, int64(2), *spawn.MinItems)
	assert.Equal(t, int64(2), *spawn.MaxItems)

	idx := s.Properties["forensic_report"].Properties["failure_index"]
	assert.Equal(t, genai.TypeInteger, idx.Type)

	assert.Nil(t, ConvertJSONSchemaToGenaiSchema(nil))
	assert.Nil(t, ConvertJSONSchemaToGenaiSchema(json.RawMessage(`not json`)))
}

func TestClient_RejectsBlankInput(t *testing.T) {
	c, err := New(context.Background(), "test-key")
	require.NoError(t, err)

	_, err = c.Audit(context.Background(), "  ")
	assert.ErrorIs(t, err, forensic.ErrEmptyInput)

	_, err = c.RenderImage(context.Background(), "")
	assert.ErrorIs(t, err, forensic.ErrEmptyInput)
}

func TestNew_Options(t *testing.T) {
	c, err := New(context.Background(), "test-key",
		WithModel(Gemini25Pro),
		WithImageModel(""),
		WithBaseURL("http://localhost:1"),
	)
	require.NoError(t, err)
	assert.Equal(t, Gemini25Pro, c.model)
	assert.Equal(t, DefaultImageModel, c.imageModel)
}
