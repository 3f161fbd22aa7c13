package httpapi

import (
	"fmt"
	"net/http"

	"github.com/kitbuilder587/agentbots/internal/domain"
)

type startBotRequest struct {
	AgentName          string   `json:"agent_name" validate:"required,max=128"`
	Background         []string `json:"background" validate:"max=64,dive,max=4000"`
	Steps              []string `json:"steps" validate:"max=64,dive,max=4000"`
	OutputInstructions []string `json:"output_instructions" validate:"max=64,dive,max=4000"`
	Credential         string   `json:"credential,omitempty" validate:"omitempty,max=512"`
}

type startBotResponse struct {
	Message    string `json:"message"`
	WebhookURL string `json:"webhook_url"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type botStatusResponse struct {
	Identity string `json:"identity"`
	State    string `json:"state"`
	Running  bool   `json:"running"`
	Loaded   bool   `json:"loaded"`
}

type listBotsResponse struct {
	RunningBots []string            `json:"running_bots"`
	Bots        []botStatusResponse `json:"bots"`
}

type statusResponse struct {
	Running bool   `json:"running"`
	State   string `json:"state"`
}

type botDetailsResponse struct {
	Identity           string   `json:"identity"`
	State              string   `json:"state"`
	IsRunning          bool     `json:"isRunning"`
	WebhookURL         string   `json:"webhook_url"`
	AgentName          string   `json:"agent_name"`
	Background         []string `json:"background"`
	Steps              []string `json:"steps"`
	OutputInstructions []string `json:"output_instructions"`
	HasCredential      bool     `json:"has_credential"`
}

func (s *Server) handleStartBot(w http.ResponseWriter, r *http.Request) {
	identity := identityParam(r)

	var req startBotRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if !s.validateBody(w, req) {
		return
	}

	webhookURL, err := s.bots.Start(r.Context(), &domain.BotConfig{
		Identity:           identity,
		AgentName:          req.AgentName,
		Background:         req.Background,
		Steps:              req.Steps,
		OutputInstructions: req.OutputInstructions,
		Credential:         req.Credential,
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, startBotResponse{
		Message:    fmt.Sprintf("Bot %s started.", domain.MaskIdentity(identity)),
		WebhookURL: webhookURL,
	})
}

func (s *Server) handleStopBot(w http.ResponseWriter, r *http.Request) {
	identity := identityParam(r)

	if err := s.bots.Stop(r.Context(), identity); err != nil {
		s.handleError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("Bot %s stopped.", domain.MaskIdentity(identity)),
	})
}

func (s *Server) handleListBots(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.bots.List(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	resp := listBotsResponse{
		RunningBots: []string{},
		Bots:        make([]botStatusResponse, 0, len(statuses)),
	}
	for _, st := range statuses {
		running := st.State == domain.BotStateRunning
		if running {
			resp.RunningBots = append(resp.RunningBots, st.Identity)
		}
		resp.Bots = append(resp.Bots, botStatusResponse{
			Identity: st.Identity,
			State:    st.State.String(),
			Running:  running,
			Loaded:   st.Loaded,
		})
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleBotStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.bots.Status(r.Context(), identityParam(r))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, statusResponse{
		Running: st.State == domain.BotStateRunning,
		State:   st.State.String(),
	})
}

func (s *Server) handleBotDetails(w http.ResponseWriter, r *http.Request) {
	d, err := s.bots.Details(r.Context(), identityParam(r))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, botDetailsResponse{
		Identity:           d.Identity,
		State:              d.State.String(),
		IsRunning:          d.State == domain.BotStateRunning,
		WebhookURL:         d.WebhookURL,
		AgentName:          d.AgentName,
		Background:         nonNil(d.Background),
		Steps:              nonNil(d.Steps),
		OutputInstructions: nonNil(d.OutputInstructions),
		HasCredential:      d.HasCredential,
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
