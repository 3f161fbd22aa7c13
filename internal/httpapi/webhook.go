package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/agentbots/internal/domain"
)

type okResponse struct {
	Status string `json:"status"`
}

// handleWebhook feeds one Telegram update to the bot's handle, loading the
// handle from the store when this process has not seen the bot yet.
// Processing errors are logged and still acknowledged so Telegram does not
// redeliver the update.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	identity := identityParam(r)

	h, err := s.bots.Handle(r.Context(), identity)
	if err != nil {
		if errors.Is(err, domain.ErrBotNotFound) || errors.Is(err, domain.ErrBotNotRunning) {
			s.errorResponse(w, http.StatusNotFound, "Bot not found.")
			return
		}
		s.handleError(w, r, err)
		return
	}

	var update tgbotapi.Update
	if !s.decodeJSON(w, r, &update) {
		return
	}

	if s.seen != nil {
		key := identity + ":" + strconv.Itoa(update.UpdateID)
		if !s.seen.SetIfAbsent(key, struct{}{}, s.cfg.DedupeTTL) {
			s.metrics.RecordUpdate("duplicate")
			s.logger.Debug("duplicate update skipped",
				zap.String("bot", domain.MaskIdentity(identity)),
				zap.Int("update_id", update.UpdateID),
			)
			s.jsonResponse(w, http.StatusOK, okResponse{Status: "ok"})
			return
		}
	}

	if err := h.ProcessUpdate(r.Context(), update); err != nil {
		s.logger.Warn("update processing failed",
			zap.String("bot", domain.MaskIdentity(identity)),
			zap.Int("update_id", update.UpdateID),
			zap.Error(err),
		)
	}

	s.jsonResponse(w, http.StatusOK, okResponse{Status: "ok"})
}
