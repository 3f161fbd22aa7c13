package httpapi

import (
	"net/http"
	"strings"
	"testing"

	"github.com/kitbuilder587/agentbots/internal/domain"
	"github.com/kitbuilder587/agentbots/internal/llm"
)

const runBody = `{
	"type": "simple",
	"input_schema_fields": {"text": {"type": "str", "description": "text to summarise"}},
	"output_schema_fields": {
		"summary": {"type": "str", "description": "one sentence"},
		"words": {"type": "int", "description": "word count"}
	},
	"background": ["You summarise text"],
	"steps": ["read", "summarise"],
	"output_instructions": ["be brief"],
	"input_data": {"text": "Go is a programming language"}
}`

func TestRunAgent(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.llm.WithResponse("```json\n{\"summary\": \"Go is a language.\", \"words\": 5}\n```")

	rec := env.do(http.MethodPost, "/agents/run", runBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	got := decode[map[string]any](t, rec)
	if got["summary"] != "Go is a language." {
		t.Errorf("summary = %v", got["summary"])
	}
	if got["words"] != float64(5) {
		t.Errorf("words = %v, want 5", got["words"])
	}

	if env.llm.Calls() != 1 {
		t.Errorf("llm calls = %d, want 1", env.llm.Calls())
	}
	if len(env.llmF.Credentials) != 1 || env.llmF.Credentials[0] != "" {
		t.Errorf("credentials requested = %v, want the default", env.llmF.Credentials)
	}
}

func TestRunAgent_UsesRequestKey(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.llm.WithResponse(`{"summary": "ok", "words": 1}`)

	body := strings.Replace(runBody, `"type": "simple",`, `"type": "simple", "api_key": "sk-caller",`, 1)
	if rec := env.do(http.MethodPost, "/agents/run", body); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if env.llmF.Credentials[0] != "sk-caller" {
		t.Errorf("credential = %q, want sk-caller", env.llmF.Credentials[0])
	}
}

func TestRunAgent_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(env *testEnv)
		wantStatus int
		wantDetail string
	}{
		{
			name:       "unsupported type",
			body:       strings.Replace(runBody, `"simple"`, `"orchestrator"`, 1),
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "type",
		},
		{
			name:       "unknown field type",
			body:       strings.Replace(runBody, `"type": "str", "description": "text`, `"type": "tuple", "description": "text`, 1),
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "input schema",
		},
		{
			name:       "input does not match schema",
			body:       strings.Replace(runBody, `{"text": "Go is a programming language"}`, `{"text": 42}`, 1),
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "expected string",
		},
		{
			name:       "missing input data",
			body:       strings.Replace(runBody, `"input_data": {"text": "Go is a programming language"}`, `"steps2": []`, 1),
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "input_data",
		},
		{
			name: "model output does not match schema",
			setup: func(env *testEnv) {
				env.llm.WithResponse(`{"summary": "ok"}`)
			},
			body:       runBody,
			wantStatus: http.StatusBadGateway,
		},
		{
			name: "llm rate limited",
			setup: func(env *testEnv) {
				env.llm.WithError(llm.ErrRateLimit)
			},
			body:       runBody,
			wantStatus: http.StatusBadGateway,
			wantDetail: "LLM request failed",
		},
		{
			name: "no credential",
			setup: func(env *testEnv) {
				env.llmF.Err = domain.ErrNoCredential
			},
			body:       runBody,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "credential",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Config{})
			if tt.setup != nil {
				tt.setup(env)
			}

			rec := env.do(http.MethodPost, "/agents/run", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
			if tt.wantDetail != "" {
				body := decode[errorBody](t, rec)
				if !strings.Contains(body.Detail, tt.wantDetail) {
					t.Errorf("detail = %q, want it to contain %q", body.Detail, tt.wantDetail)
				}
			}
		})
	}
}
