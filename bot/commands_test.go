package bot

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"niverbot/commands"
	"niverbot/dates"
	"niverbot/messages"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTransport answers every Discord API call with an empty object.
type recordingTransport struct {
	mu       sync.Mutex
	requests []recordedRequest
}

type recordedRequest struct {
	path string
	body []byte
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}

	rt.mu.Lock()
	rt.requests = append(rt.requests, recordedRequest{path: req.URL.Path, body: body})
	rt.mu.Unlock()

	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader("{}")),
		Request:    req,
	}, nil
}

type followup struct {
	Embeds []*discordgo.MessageEmbed `json:"embeds"`
}

// followups decodes the webhook followups sent after deferred acks.
func (rt *recordingTransport) followups(t *testing.T) []followup {
	t.Helper()
	rt.mu.Lock()
	defer rt.mu.Unlock()

	var out []followup
	for _, req := range rt.requests {
		if !strings.Contains(req.path, "/webhooks/") {
			continue
		}
		var params followup
		require.NoError(t, json.Unmarshal(req.body, &params))
		out = append(out, params)
	}
	return out
}

func newTestBot(t *testing.T) (*Bot, *recordingTransport) {
	t.Helper()
	session, err := discordgo.New("Bot test")
	require.NoError(t, err)

	transport := &recordingTransport{}
	session.Client = &http.Client{Transport: transport}

	return &Bot{
		session: session,
		catalog: messages.MustLoad(messages.Portuguese),
	}, transport
}

func commandInteraction(name string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:    "interaction",
		AppID: "app",
		Token: "token",
		Type:  discordgo.InteractionApplicationCommand,
		Data:  discordgo.ApplicationCommandInteractionData{Name: name},
	}}
}

func TestHandlers_RespondWithoutUser(t *testing.T) {
	handlers := map[string]func(*Bot) commandHandler{
		"aniversario":        func(b *Bot) commandHandler { return b.Register },
		"removeraniversario": func(b *Bot) commandHandler { return b.Remove },
		"aniversariode":      func(b *Bot) commandHandler { return b.Lookup },
	}

	for name, handler := range handlers {
		t.Run(name, func(t *testing.T) {
			bot, transport := newTestBot(t)

			handler(bot)(context.Background(), commandInteraction(name))

			followups := transport.followups(t)
			require.Len(t, followups, 1)
			require.Len(t, followups[0].Embeds, 1)
			assert.Equal(t, bot.catalog.T("error.request"), followups[0].Embeds[0].Description)
		})
	}
}

func TestHandlers_RespondWithoutOption(t *testing.T) {
	bot, transport := newTestBot(t)

	bot.SetChannel(context.Background(), commandInteraction("canalaniversario"))
	bot.SetRole(context.Background(), commandInteraction("cargoaniversario"))

	followups := transport.followups(t)
	require.Len(t, followups, 2)
	for _, f := range followups {
		require.Len(t, f.Embeds, 1)
		assert.Equal(t, bot.catalog.T("error.request"), f.Embeds[0].Description)
	}
}

func TestErrorEmbed(t *testing.T) {
	bot := &Bot{catalog: messages.MustLoad(messages.Portuguese)}

	tests := []struct {
		err  error
		key  string
		desc bool
	}{
		{dates.ErrInvalidFormat, "register.invalid_title", false},
		{commands.ErrUnauthorized, "error.unauthorized", true},
		{commands.ErrAdminRole, "role.admin", true},
		{commands.ErrNoBirthdays, "list.empty", false},
		{errNoUser, "error.request", true},
		{io.ErrUnexpectedEOF, "error.storage", true},
	}

	for _, tt := range tests {
		embed := bot.errorEmbed(tt.err)
		if tt.desc {
			assert.Equal(t, bot.catalog.T(tt.key), embed.Description, tt.err)
		} else {
			assert.Equal(t, bot.catalog.T(tt.key), embed.Title, tt.err)
		}
	}
}
