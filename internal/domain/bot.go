package domain

import (
	"strings"
	"time"
)

const identityMaskLen = 8

type BotConfig struct {
	ID                 string
	Identity           string
	AgentName          string
	Background         []string
	Steps              []string
	OutputInstructions []string
	Credential         string
	IsRunning          bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (c *BotConfig) Validate() error {
	if strings.TrimSpace(c.Identity) == "" {
		return ErrEmptyIdentity
	}
	if strings.TrimSpace(c.AgentName) == "" {
		return ErrEmptyAgentName
	}
	return nil
}

// Normalize trims names and replaces nil instruction lists with empty ones
// so that persisted records never carry JSON null.
func (c *BotConfig) Normalize() {
	c.Identity = strings.TrimSpace(c.Identity)
	c.AgentName = strings.TrimSpace(c.AgentName)
	c.Credential = strings.TrimSpace(c.Credential)
	c.Background = nonNil(c.Background)
	c.Steps = nonNil(c.Steps)
	c.OutputInstructions = nonNil(c.OutputInstructions)
}

func (c *BotConfig) Clone() *BotConfig {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Background = append([]string(nil), c.Background...)
	cp.Steps = append([]string(nil), c.Steps...)
	cp.OutputInstructions = append([]string(nil), c.OutputInstructions...)
	return &cp
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type BotState int

const (
	BotStateUnregistered BotState = iota
	BotStateStopped
	BotStateRunning
)

func (s BotState) String() string {
	switch s {
	case BotStateStopped:
		return "stopped"
	case BotStateRunning:
		return "running"
	default:
		return "unregistered"
	}
}

// StateOf derives the lifecycle state from the persisted record alone.
func StateOf(cfg *BotConfig) BotState {
	switch {
	case cfg == nil:
		return BotStateUnregistered
	case cfg.IsRunning:
		return BotStateRunning
	default:
		return BotStateStopped
	}
}

type BotStatus struct {
	Identity string
	State    BotState
	// Loaded reports whether this process holds a live handle for the bot.
	Loaded bool
}

type BotDetails struct {
	Identity           string
	State              BotState
	WebhookURL         string
	AgentName          string
	Background         []string
	Steps              []string
	OutputInstructions []string
	HasCredential      bool
}

// MaskIdentity keeps a short prefix so tokens are never echoed in full.
func MaskIdentity(identity string) string {
	r := []rune(identity)
	if len(r) <= identityMaskLen {
		return identity
	}
	return string(r[:identityMaskLen]) + "…"
}
