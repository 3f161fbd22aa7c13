package httpapi

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kitbuilder587/agentbots/internal/botmanager"
	"github.com/kitbuilder587/agentbots/internal/cache/memory"
	"github.com/kitbuilder587/agentbots/internal/domain"
	"github.com/kitbuilder587/agentbots/internal/llm"
	"github.com/kitbuilder587/agentbots/internal/metrics"
	"github.com/kitbuilder587/agentbots/internal/repository"
)

const maxBodyBytes = 1 << 20

// BotManager is the lifecycle surface the HTTP layer drives.
type BotManager interface {
	Start(ctx context.Context, cfg *domain.BotConfig) (string, error)
	Stop(ctx context.Context, identity string) error
	Handle(ctx context.Context, identity string) (botmanager.Handle, error)
	List(ctx context.Context) ([]domain.BotStatus, error)
	Status(ctx context.Context, identity string) (domain.BotStatus, error)
	Details(ctx context.Context, identity string) (*domain.BotDetails, error)
}

type Config struct {
	// AdminAPIKey guards every route except webhook, health and metrics.
	AdminAPIKey    string
	AllowedOrigins []string
	RequestTimeout time.Duration
	DedupeTTL      time.Duration
}

type Server struct {
	cfg      Config
	bots     BotManager
	llm      llm.Factory
	pinger   repository.Pinger
	seen     *memory.Cache[struct{}]
	validate *validator.Validate
	logger   *zap.Logger
	metrics  *metrics.Metrics
	router   chi.Router
}

func NewServer(
	cfg Config,
	bots BotManager,
	llmFactory llm.Factory,
	pinger repository.Pinger,
	seen *memory.Cache[struct{}],
	logger *zap.Logger,
	m *metrics.Metrics,
) *Server {
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = 10 * time.Minute
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		cfg:      cfg,
		bots:     bots,
		llm:      llmFactory,
		pinger:   pinger,
		seen:     seen,
		validate: newValidator(),
		logger:   logger,
		metrics:  m,
	}

	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	// Telegram calls this one; it is never behind the admin key.
	r.Post("/bots/{identity}/webhook", s.handleWebhook)

	r.Group(func(r chi.Router) {
		r.Use(s.adminAuth)

		r.Get("/bots", s.handleListBots)
		r.Route("/bots/{identity}", func(r chi.Router) {
			r.Post("/start", s.handleStartBot)
			r.Post("/stop", s.handleStopBot)
			r.Get("/status", s.handleBotStatus)
			r.Get("/details", s.handleBotDetails)
		})
		r.Post("/agents/run", s.handleRunAgent)
	})

	s.router = r
}

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
