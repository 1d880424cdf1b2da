package bot

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"niverbot/announcer"
	"niverbot/commands"
	"niverbot/messages"
	"niverbot/models"

	"github.com/bwmarrin/discordgo"
)

const (
	colorRed     = 0xe74c3c
	colorGreen   = 0x2ecc71
	colorOrange  = 0xe67e22
	colorPurple  = 0x9b59b6
	colorGold    = 0xf1c40f
	colorBlurple = 0x5865f2
)

const defaultAvatarURL = "https://cdn-icons-png.flaticon.com/512/168/168726.png"

const pageButtonPrefix = "aniversariantes:"

func birthdayEmbed(birthday models.Birthday, avatarURL string) *discordgo.MessageEmbed {
	if avatarURL == "" {
		avatarURL = defaultAvatarURL
	}
	return &discordgo.MessageEmbed{
		Title:       "🎂 " + birthday.Name,
		Description: fmt.Sprintf("📅 **%v**", birthday.Date),
		Color:       colorPurple,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: avatarURL},
	}
}

// pageComponents renders first/previous/next/last buttons for a birthday
// list. A single page gets no buttons.
func pageComponents(page commands.Page) []discordgo.MessageComponent {
	if page.Count <= 1 {
		return nil
	}

	first := page.Number == 0
	last := page.Number == page.Count-1

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				pageButton("⏮", 0, first),
				pageButton("◀", page.Number-1, first),
				pageButton("▶", page.Number+1, last),
				pageButton("⏭", page.Count-1, last),
			},
		},
	}
}

func pageButton(label string, target int, disabled bool) discordgo.Button {
	// Custom IDs must be unique within a message, so edge buttons that would
	// share a target get a suffix.
	return discordgo.Button{
		Label:    label,
		Style:    discordgo.SecondaryButton,
		Disabled: disabled,
		CustomID: pageButtonPrefix + strconv.Itoa(target) + ":" + label,
	}
}

// pageFromCustomID extracts the target page from a list button's custom ID.
func pageFromCustomID(customID string) (int, bool) {
	rest, ok := strings.CutPrefix(customID, pageButtonPrefix)
	if !ok {
		return 0, false
	}
	number, _, _ := strings.Cut(rest, ":")
	page, err := strconv.Atoi(number)
	if err != nil {
		return 0, false
	}
	return page, true
}

func nextEmbed(catalog *messages.Catalog, upcoming commands.Upcoming) *discordgo.MessageEmbed {
	// Ties can mix dates, e.g. 28/02 and 29/02 in a common year.
	lines := make([]string, len(upcoming.Birthdays))
	for n, birthday := range upcoming.Birthdays {
		switch upcoming.Days {
		case 0:
			lines[n] = catalog.T("next.today", birthday.Name, birthday.Date)
		case 1:
			lines[n] = catalog.T("next.one_day", birthday.Name, birthday.Date)
		default:
			lines[n] = catalog.T("next.days", birthday.Name, birthday.Date, upcoming.Days)
		}
	}

	return &discordgo.MessageEmbed{
		Title:       catalog.T("next.title"),
		Description: strings.Join(lines, "\n\n"),
		Color:       colorGold,
	}
}

// announcementMessage builds the birthday post for member, pinging only them.
func announcementMessage(catalog *messages.Catalog, member announcer.Member) *discordgo.MessageSend {
	avatarURL := member.AvatarURL
	if avatarURL == "" {
		avatarURL = defaultAvatarURL
	}

	return &discordgo.MessageSend{
		Content: "🎈 <@" + member.UserID + ">",
		Embeds: []*discordgo.MessageEmbed{{
			Title:       catalog.T("announce.title", member.DisplayName),
			Description: catalog.T("announce.description"),
			Color:       rand.Intn(0xffffff + 1),
			Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: avatarURL},
		}},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: []string{member.UserID},
		},
	}
}
