package domain

import "errors"

var (
	ErrValidation = errors.New("validation error")
	// ErrUpstream marks failures of the store or the Telegram API.
	ErrUpstream = errors.New("upstream failure")
)

var (
	ErrBotNotFound       = errors.New("bot not found")
	ErrBotNotRunning     = errors.New("bot is not running")
	ErrBotAlreadyRunning = errors.New("bot is already running")
	ErrWebhookRemoval    = errors.New("webhook removal failed")
	ErrEmptyIdentity     = errors.New("empty bot identity")
	ErrEmptyAgentName    = errors.New("empty agent name")
)

var (
	ErrChatUserNotFound = errors.New("chat user not found")
	ErrNoCredential     = errors.New("no llm credential configured")
)
