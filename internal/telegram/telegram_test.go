package telegram

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/agentbots/internal/domain"
	"github.com/kitbuilder587/agentbots/internal/llm/mock"
	"github.com/kitbuilder587/agentbots/internal/ratelimit"
	"github.com/kitbuilder587/agentbots/internal/repository"
	"github.com/kitbuilder587/agentbots/internal/service"
)

type apiCall struct {
	method string
	form   url.Values
}

// fakeTelegram answers Bot API calls and records them.
type fakeTelegram struct {
	mu     sync.Mutex
	calls  []apiCall
	fail   map[string]bool
	server *httptest.Server
}

func newFakeTelegram(t *testing.T) *fakeTelegram {
	t.Helper()
	f := &fakeTelegram{fail: make(map[string]bool)}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		method := path.Base(r.URL.Path)

		f.mu.Lock()
		f.calls = append(f.calls, apiCall{method: method, form: r.PostForm})
		failing := f.fail[method]
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case failing:
			w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: boom"}`))
		case method == "sendMessage":
			w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
		default:
			w.Write([]byte(`{"ok":true,"result":true}`))
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeTelegram) endpoint() string {
	return f.server.URL + "/bot%s/%s"
}

func (f *fakeTelegram) failOn(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = true
}

func (f *fakeTelegram) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.method)
	}
	return out
}

func (f *fakeTelegram) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c.method == "sendMessage" {
			out = append(out, c.form.Get("text"))
		}
	}
	return out
}

func (f *fakeTelegram) lastForm(method string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].method == method {
			return f.calls[i].form
		}
	}
	return nil
}

type testEnv struct {
	tg    *fakeTelegram
	llm   *mock.Client
	repo  *repository.MockChatUserRepository
	store service.MemoryStore
	bot   *Bot
}

func newTestEnv(t *testing.T, limiter *ratelimit.Limiter) *testEnv {
	t.Helper()

	env := &testEnv{
		tg:   newFakeTelegram(t),
		llm:  mock.New().WithResponse("Hi! How can I help?"),
		repo: repository.NewMockChatUserRepository(),
	}
	env.store = service.NewMemoryStore(env.repo, zap.NewNop())

	f := NewFactory(Config{APIEndpoint: env.tg.endpoint()}, env.store, mock.NewFactory(env.llm), limiter, zap.NewNop(), nil)
	bot, err := f.New(&domain.BotConfig{
		Identity:           "123456:secret-token",
		AgentName:          "Alice",
		Background:         []string{"be nice"},
		Steps:              []string{"greet"},
		OutputInstructions: []string{"short replies"},
	})
	if err != nil {
		t.Fatalf("Factory.New() error = %v", err)
	}
	env.bot = bot
	return env
}

func textUpdate(updateID int, chatID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: updateID,
		Text:      text,
		Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
		From:      &tgbotapi.User{ID: chatID},
	}
	if strings.HasPrefix(text, "/") {
		length := len(text)
		if i := strings.IndexByte(text, ' '); i > 0 {
			length = i
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	}
	return tgbotapi.Update{UpdateID: updateID, Message: msg}
}
