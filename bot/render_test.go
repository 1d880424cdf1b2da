package bot

import (
	"testing"
	"time"

	"niverbot/announcer"
	"niverbot/commands"
	"niverbot/dates"
	"niverbot/messages"
	"niverbot/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buttons(t *testing.T, components []discordgo.MessageComponent) []discordgo.Button {
	t.Helper()
	require.Len(t, components, 1)
	row, ok := components[0].(discordgo.ActionsRow)
	require.True(t, ok)

	var out []discordgo.Button
	for _, c := range row.Components {
		button, ok := c.(discordgo.Button)
		require.True(t, ok)
		out = append(out, button)
	}
	return out
}

func TestPageComponents(t *testing.T) {
	assert.Nil(t, pageComponents(commands.Page{Number: 0, Count: 1}))

	first := buttons(t, pageComponents(commands.Page{Number: 0, Count: 3}))
	require.Len(t, first, 4)
	assert.True(t, first[0].Disabled)
	assert.True(t, first[1].Disabled)
	assert.False(t, first[2].Disabled)
	assert.False(t, first[3].Disabled)

	middle := buttons(t, pageComponents(commands.Page{Number: 1, Count: 3}))
	targets := make([]int, len(middle))
	ids := make(map[string]bool)
	for n, button := range middle {
		assert.False(t, button.Disabled)
		page, ok := pageFromCustomID(button.CustomID)
		require.True(t, ok, button.CustomID)
		targets[n] = page
		ids[button.CustomID] = true
	}
	assert.Equal(t, []int{0, 0, 2, 2}, targets)
	assert.Len(t, ids, 4, "custom IDs must be unique")

	last := buttons(t, pageComponents(commands.Page{Number: 2, Count: 3}))
	assert.False(t, last[0].Disabled)
	assert.True(t, last[2].Disabled)
	assert.True(t, last[3].Disabled)
}

func TestPageFromCustomID(t *testing.T) {
	tests := []struct {
		id   string
		page int
		ok   bool
	}{
		{"aniversariantes:3:▶", 3, true},
		{"aniversariantes:0", 0, true},
		{"aniversariantes:x:▶", 0, false},
		{"other:1", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		page, ok := pageFromCustomID(tt.id)
		assert.Equal(t, tt.ok, ok, tt.id)
		assert.Equal(t, tt.page, page, tt.id)
	}
}

func TestBirthdayEmbed(t *testing.T) {
	b := models.Birthday{UserID: "1", Name: "Ana", Date: "10/03"}

	embed := birthdayEmbed(b, "")
	assert.Equal(t, "🎂 Ana", embed.Title)
	assert.Equal(t, "📅 **10/03**", embed.Description)
	assert.Equal(t, defaultAvatarURL, embed.Thumbnail.URL)

	embed = birthdayEmbed(b, "https://cdn.example/avatar.png")
	assert.Equal(t, "https://cdn.example/avatar.png", embed.Thumbnail.URL)
}

func TestNextEmbed(t *testing.T) {
	catalog := messages.MustLoad(messages.Portuguese)
	date := dates.DayMonth{Day: 20, Month: time.March}

	embed := nextEmbed(catalog, commands.Upcoming{
		Birthdays: []models.Birthday{{Name: "Ana", Date: "20/03"}, {Name: "Bia", Date: "20/03"}},
		Date:      date,
		Days:      10,
	})
	assert.Equal(t, catalog.T("next.title"), embed.Title)
	assert.Contains(t, embed.Description, "**Ana** 🎂 em **20/03**")
	assert.Contains(t, embed.Description, "**Bia**")
	assert.Contains(t, embed.Description, "Faltam **10 dias**!")

	embed = nextEmbed(catalog, commands.Upcoming{Birthdays: []models.Birthday{{Name: "Ana", Date: "20/03"}}, Date: date, Days: 1})
	assert.Contains(t, embed.Description, "Falta **1 dia**!")

	embed = nextEmbed(catalog, commands.Upcoming{Birthdays: []models.Birthday{{Name: "Ana", Date: "20/03"}}, Date: date})
	assert.Contains(t, embed.Description, "É hoje!")
}

func TestNextEmbed_TieShowsEachDate(t *testing.T) {
	catalog := messages.MustLoad(messages.Portuguese)

	embed := nextEmbed(catalog, commands.Upcoming{
		Birthdays: []models.Birthday{{Name: "Ana", Date: "28/02"}, {Name: "Bia", Date: "29/02"}},
		Date:      dates.DayMonth{Day: 28, Month: time.February},
		Days:      3,
	})
	assert.Contains(t, embed.Description, "**Ana** 🎂 em **28/02**")
	assert.Contains(t, embed.Description, "**Bia** 🎂 em **29/02**")
}

func TestAnnouncementMessage(t *testing.T) {
	catalog := messages.MustLoad(messages.Portuguese)

	msg := announcementMessage(catalog, announcer.Member{UserID: "42", DisplayName: "Ana"})
	assert.Equal(t, "🎈 <@42>", msg.Content)
	assert.Equal(t, []string{"42"}, msg.AllowedMentions.Users)
	require.Len(t, msg.Embeds, 1)
	assert.Equal(t, "🎉 Feliz aniversário, Ana!", msg.Embeds[0].Title)
	assert.Equal(t, defaultAvatarURL, msg.Embeds[0].Thumbnail.URL)
	assert.LessOrEqual(t, msg.Embeds[0].Color, 0xffffff)
}
