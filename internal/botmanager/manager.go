package botmanager

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/agentbots/internal/domain"
	"github.com/kitbuilder587/agentbots/internal/metrics"
	"github.com/kitbuilder587/agentbots/internal/repository"
)

const (
	reconcileConcurrency = 8
	defaultStoreTimeout  = 10 * time.Second
)

// Manager owns the identity -> handle registry. The bot repository is the
// source of truth; the registry is a cache of handles for running bots.
//
// Every transition of one identity (Start, Stop, lazy load, reconcile) runs
// under that identity's lock, so check-then-act sequences do not race.
type Manager struct {
	repo      repository.BotRepository
	factory   HandleFactory
	publicURL string
	logger    *zap.Logger
	metrics   *metrics.Metrics

	// storeTimeout bounds every repository call.
	storeTimeout time.Duration

	mu      sync.RWMutex
	handles map[string]Handle

	locksMu sync.Mutex
	locks   map[string]*identityLock
}

// identityLock lives in the table only while someone holds or waits for it.
type identityLock struct {
	mu   sync.Mutex
	refs int
}

func New(repo repository.BotRepository, factory HandleFactory, publicURL string, logger *zap.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		repo:         repo,
		factory:      factory,
		publicURL:    strings.TrimRight(publicURL, "/"),
		logger:       logger,
		metrics:      m,
		storeTimeout: defaultStoreTimeout,
		handles:      make(map[string]Handle),
		locks:        make(map[string]*identityLock),
	}
}

// WebhookURL depends only on the identity and the public base URL, so it is
// stable across restarts.
func (m *Manager) WebhookURL(identity string) string {
	return m.publicURL + "/bots/" + url.PathEscape(identity) + "/webhook"
}

// Start registers a new handle, persists cfg with isRunning=true and points
// the platform webhook at this service. If the webhook cannot be registered,
// the registry entry is dropped and the previous record is restored.
func (m *Manager) Start(ctx context.Context, cfg *domain.BotConfig) (string, error) {
	cfg = cfg.Clone()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	identity := cfg.Identity

	unlock := m.lock(identity)
	defer unlock()

	if m.loaded(identity) {
		m.metrics.RecordLifecycle("start", "conflict")
		return "", domain.ErrBotAlreadyRunning
	}

	prev, err := m.getRecord(ctx, identity)
	if err != nil && !errors.Is(err, domain.ErrBotNotFound) {
		m.metrics.RecordLifecycle("start", "error")
		return "", fmt.Errorf("%w: load bot: %w", domain.ErrUpstream, err)
	}

	h, err := m.factory.NewHandle(cfg)
	if err != nil {
		m.metrics.RecordLifecycle("start", "error")
		return "", fmt.Errorf("create handle: %w", err)
	}

	cfg.IsRunning = true
	if err := m.upsertRecord(ctx, cfg); err != nil {
		m.metrics.RecordLifecycle("start", "error")
		return "", fmt.Errorf("%w: persist bot: %w", domain.ErrUpstream, err)
	}
	m.put(identity, h)

	webhookURL := m.WebhookURL(identity)
	if err := h.RegisterWebhook(webhookURL); err != nil {
		m.rollbackStart(ctx, identity, prev)
		m.metrics.RecordLifecycle("start", "webhook_error")
		return "", fmt.Errorf("%w: register webhook: %w", domain.ErrUpstream, err)
	}

	m.metrics.RecordLifecycle("start", "ok")
	m.logger.Info("bot started",
		zap.String("bot", domain.MaskIdentity(identity)),
		zap.String("agent", cfg.AgentName),
	)
	return webhookURL, nil
}

func (m *Manager) rollbackStart(ctx context.Context, identity string, prev *domain.BotConfig) {
	m.remove(identity)

	var err error
	if prev != nil {
		err = m.upsertRecord(ctx, prev)
	} else {
		err = m.setRunning(ctx, identity, false)
	}
	if err != nil {
		m.logger.Error("failed to roll back bot record",
			zap.String("bot", domain.MaskIdentity(identity)),
			zap.Error(err),
		)
	}
}

// Stop persists isRunning=false first, then deregisters the webhook, then
// drops the handle. A failed deregistration still drops the handle and is
// reported as ErrWebhookRemoval; the platform may keep a dangling webhook.
func (m *Manager) Stop(ctx context.Context, identity string) error {
	unlock := m.lock(identity)
	defer unlock()

	h, ok := m.get(identity)
	if !ok {
		m.metrics.RecordLifecycle("stop", "not_found")
		return domain.ErrBotNotRunning
	}

	if err := m.setRunning(ctx, identity, false); err != nil && !errors.Is(err, domain.ErrBotNotFound) {
		m.metrics.RecordLifecycle("stop", "error")
		return fmt.Errorf("%w: persist stop: %w", domain.ErrUpstream, err)
	}

	webhookErr := h.RemoveWebhook()
	m.remove(identity)

	if webhookErr != nil {
		m.metrics.RecordLifecycle("stop", "webhook_error")
		m.logger.Warn("bot stopped but webhook removal failed",
			zap.String("bot", domain.MaskIdentity(identity)),
			zap.Error(webhookErr),
		)
		return fmt.Errorf("%w: %v", domain.ErrWebhookRemoval, webhookErr)
	}

	m.metrics.RecordLifecycle("stop", "ok")
	m.logger.Info("bot stopped", zap.String("bot", domain.MaskIdentity(identity)))
	return nil
}

// Handle returns the live handle, building it from the persisted record when
// this process does not hold one yet. Only records marked running are loaded;
// the webhook is not re-registered.
func (m *Manager) Handle(ctx context.Context, identity string) (Handle, error) {
	if h, ok := m.get(identity); ok {
		return h, nil
	}

	unlock := m.lock(identity)
	defer unlock()

	if h, ok := m.get(identity); ok {
		return h, nil
	}

	cfg, err := m.getRecord(ctx, identity)
	if err != nil {
		return nil, err
	}
	if !cfg.IsRunning {
		return nil, domain.ErrBotNotRunning
	}

	h, err := m.factory.NewHandle(cfg)
	if err != nil {
		m.metrics.RecordLifecycle("load", "error")
		return nil, fmt.Errorf("create handle: %w", err)
	}
	m.put(identity, h)

	m.metrics.RecordLifecycle("load", "ok")
	m.logger.Info("bot handle loaded lazily", zap.String("bot", domain.MaskIdentity(identity)))
	return h, nil
}

// List reports every persisted bot with its state derived from the record.
func (m *Manager) List(ctx context.Context) ([]domain.BotStatus, error) {
	storeCtx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	bots, err := m.repo.List(storeCtx)
	if err != nil {
		return nil, fmt.Errorf("list bots: %w", err)
	}

	statuses := make([]domain.BotStatus, 0, len(bots))
	running := 0
	for i := range bots {
		st := m.statusOf(&bots[i])
		if st.State == domain.BotStateRunning {
			running++
		}
		statuses = append(statuses, st)
	}
	m.metrics.SetRunningBots(running)
	return statuses, nil
}

func (m *Manager) Status(ctx context.Context, identity string) (domain.BotStatus, error) {
	cfg, err := m.getRecord(ctx, identity)
	if err != nil {
		return domain.BotStatus{Identity: identity}, err
	}
	return m.statusOf(cfg), nil
}

func (m *Manager) Details(ctx context.Context, identity string) (*domain.BotDetails, error) {
	cfg, err := m.getRecord(ctx, identity)
	if err != nil {
		return nil, err
	}

	return &domain.BotDetails{
		Identity:           domain.MaskIdentity(cfg.Identity),
		State:              domain.StateOf(cfg),
		WebhookURL:         m.WebhookURL(cfg.Identity),
		AgentName:          cfg.AgentName,
		Background:         cfg.Background,
		Steps:              cfg.Steps,
		OutputInstructions: cfg.OutputInstructions,
		HasCredential:      cfg.Credential != "",
	}, nil
}

// Reconcile makes the registry hold exactly the bots persisted as running.
// A bot whose handle cannot be built is logged and skipped; the others still load.
func (m *Manager) Reconcile(ctx context.Context) error {
	listCtx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	running, err := m.repo.ListRunning(listCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("list running bots: %w", err)
	}

	want := make(map[string]struct{}, len(running))
	for _, cfg := range running {
		want[cfg.Identity] = struct{}{}
	}

	for _, identity := range m.loadedIdentities() {
		if _, ok := want[identity]; ok {
			continue
		}
		if m.dropStale(ctx, identity) {
			m.logger.Info("dropped stale bot handle", zap.String("bot", domain.MaskIdentity(identity)))
		}
	}

	var (
		errsMu sync.Mutex
		errs   []error
	)
	var g errgroup.Group
	g.SetLimit(reconcileConcurrency)

	for i := range running {
		cfg := running[i]
		g.Go(func() error {
			unlock := m.lock(cfg.Identity)
			defer unlock()

			if m.loaded(cfg.Identity) {
				return nil
			}
			// Stop мог отработать после ListRunning
			src := &cfg
			if current, err := m.getRecord(ctx, cfg.Identity); err == nil {
				if !current.IsRunning {
					return nil
				}
				src = current
			}
			h, err := m.factory.NewHandle(src)
			if err != nil {
				m.logger.Error("failed to restore bot",
					zap.String("bot", domain.MaskIdentity(cfg.Identity)),
					zap.Error(err),
				)
				errsMu.Lock()
				errs = append(errs, fmt.Errorf("restore %s: %w", domain.MaskIdentity(cfg.Identity), err))
				errsMu.Unlock()
				return nil
			}
			m.put(cfg.Identity, h)
			return nil
		})
	}
	_ = g.Wait()

	m.metrics.SetRunningBots(len(running))
	m.metrics.RecordLifecycle("reconcile", "ok")
	m.logger.Info("registry reconciled",
		zap.Int("running", len(running)),
		zap.Int("loaded", m.loadedCount()),
	)
	return errors.Join(errs...)
}

// Loaded reports whether a handle for identity is held in memory.
func (m *Manager) Loaded(identity string) bool {
	return m.loaded(identity)
}

// dropStale removes a loaded handle whose record is no longer running. The
// record is re-read under the identity lock so a concurrent Start is kept.
func (m *Manager) dropStale(ctx context.Context, identity string) bool {
	unlock := m.lock(identity)
	defer unlock()

	if !m.loaded(identity) {
		return false
	}
	cfg, err := m.getRecord(ctx, identity)
	switch {
	case err == nil && cfg.IsRunning:
		return false
	case err != nil && !errors.Is(err, domain.ErrBotNotFound):
		m.logger.Warn("failed to recheck bot record, keeping handle",
			zap.String("bot", domain.MaskIdentity(identity)),
			zap.Error(err),
		)
		return false
	}
	m.remove(identity)
	return true
}

func (m *Manager) getRecord(ctx context.Context, identity string) (*domain.BotConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()
	return m.repo.Get(ctx, identity)
}

func (m *Manager) upsertRecord(ctx context.Context, cfg *domain.BotConfig) error {
	ctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()
	return m.repo.Upsert(ctx, cfg)
}

func (m *Manager) setRunning(ctx context.Context, identity string, running bool) error {
	ctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()
	return m.repo.SetRunning(ctx, identity, running)
}

func (m *Manager) statusOf(cfg *domain.BotConfig) domain.BotStatus {
	return domain.BotStatus{
		Identity: cfg.Identity,
		State:    domain.StateOf(cfg),
		Loaded:   m.loaded(cfg.Identity),
	}
}

// lock takes the per-identity lock. The returned func releases it and frees
// the table entry once nobody else holds or waits for it.
func (m *Manager) lock(identity string) func() {
	m.locksMu.Lock()
	l, ok := m.locks[identity]
	if !ok {
		l = &identityLock{}
		m.locks[identity] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		m.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, identity)
		}
		m.locksMu.Unlock()
	}
}

func (m *Manager) get(identity string) (Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handles[identity]
	return h, ok
}

func (m *Manager) loaded(identity string) bool {
	_, ok := m.get(identity)
	return ok
}

func (m *Manager) put(identity string, h Handle) {
	m.mu.Lock()
	m.handles[identity] = h
	n := len(m.handles)
	m.mu.Unlock()
	m.metrics.SetLoadedHandles(n)
}

func (m *Manager) remove(identity string) {
	m.mu.Lock()
	delete(m.handles, identity)
	n := len(m.handles)
	m.mu.Unlock()
	m.metrics.SetLoadedHandles(n)
}

func (m *Manager) loadedIdentities() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.handles))
	for id := range m.handles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Manager) loadedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handles)
}
