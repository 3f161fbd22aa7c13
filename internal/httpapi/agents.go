package httpapi

import (
	"fmt"
	"net/http"

	"github.com/kitbuilder587/agentbots/internal/agent"
	"github.com/kitbuilder587/agentbots/internal/domain"
	"github.com/kitbuilder587/agentbots/internal/schema"
)

type runAgentRequest struct {
	Type               string                      `json:"type" validate:"required,oneof=simple"`
	InputSchemaFields  map[string]schema.FieldSpec `json:"input_schema_fields" validate:"required,min=1"`
	OutputSchemaFields map[string]schema.FieldSpec `json:"output_schema_fields" validate:"required,min=1"`
	Background         []string                    `json:"background"`
	Steps              []string                    `json:"steps"`
	OutputInstructions []string                    `json:"output_instructions"`
	InputData          map[string]any              `json:"input_data" validate:"required"`
	APIKey             string                      `json:"api_key,omitempty"`
}

// handleRunAgent runs a one-shot structured agent built from the schemas in
// the request and returns the validated output document.
func (s *Server) handleRunAgent(w http.ResponseWriter, r *http.Request) {
	var req runAgentRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if !s.validateBody(w, req) {
		return
	}

	input, err := schema.FromSpecs(req.InputSchemaFields)
	if err != nil {
		s.handleError(w, r, fmt.Errorf("%w: input schema: %v", domain.ErrValidation, err))
		return
	}
	output, err := schema.FromSpecs(req.OutputSchemaFields)
	if err != nil {
		s.handleError(w, r, fmt.Errorf("%w: output schema: %v", domain.ErrValidation, err))
		return
	}

	client, err := s.llm.For(req.APIKey)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	structured := agent.NewStructured(client, agent.Instructions{
		Background:         req.Background,
		Steps:              req.Steps,
		OutputInstructions: req.OutputInstructions,
	}, input, output, s.logger)

	result, err := structured.Run(r.Context(), req.InputData)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, result)
}
