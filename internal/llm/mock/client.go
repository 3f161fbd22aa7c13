package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/agentbots/internal/llm"
)

type Client struct {
	mu sync.Mutex

	Response string
	// Responses, when non-empty, are returned in order before falling back to Response.
	Responses []string
	Error     error
	Delay     time.Duration

	CallCount    int
	LastMessages []llm.Message
	AllCalls     [][]llm.Message
}

func New() *Client {
	return &Client{
		Response: "This is a mock response.",
	}
}

func (c *Client) WithResponse(response string) *Client {
	c.Response = response
	return c
}

func (c *Client) WithResponses(responses ...string) *Client {
	c.Responses = responses
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	c.mu.Lock()
	c.CallCount++
	c.LastMessages = append([]llm.Message(nil), messages...)
	c.AllCalls = append(c.AllCalls, c.LastMessages)
	delay := c.Delay
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Error != nil {
		return "", c.Error
	}
	if len(c.Responses) > 0 {
		resp := c.Responses[0]
		c.Responses = c.Responses[1:]
		return resp, nil
	}
	return c.Response, nil
}

func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CallCount
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.LastMessages = nil
	c.AllCalls = nil
}

// Factory returns the same Client for every credential and remembers what it was asked for.
type Factory struct {
	mu sync.Mutex

	Client      *Client
	Err         error
	Credentials []string
}

func NewFactory(c *Client) *Factory {
	return &Factory{Client: c}
}

func (f *Factory) For(credential string) (llm.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Credentials = append(f.Credentials, credential)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Client, nil
}

var (
	_ llm.Client  = (*Client)(nil)
	_ llm.Factory = (*Factory)(nil)
)
