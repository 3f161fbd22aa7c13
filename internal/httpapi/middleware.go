package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kitbuilder587/agentbots/internal/domain"
)

// requestLogger logs the route pattern, never the raw path: the path carries
// the bot token.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			s.metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(status), duration)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Duration("duration", duration),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}
			if identity := chi.URLParam(r, "identity"); identity != "" {
				fields = append(fields, zap.String("bot", domain.MaskIdentity(identity)))
			}
			if status >= http.StatusInternalServerError {
				s.logger.Warn("http request", fields...)
				return
			}
			s.logger.Debug("http request", fields...)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) adminAuth(next http.Handler) http.Handler {
	if s.cfg.AdminAPIKey == "" {
		return next
	}
	want := []byte("Bearer " + s.cfg.AdminAPIKey)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get("Authorization"))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			s.errorResponse(w, http.StatusUnauthorized, "Unauthorized.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
