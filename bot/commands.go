package bot

import (
	"context"
	"errors"
	"fmt"

	"niverbot/commands"
	"niverbot/dal"
	"niverbot/dates"
	"niverbot/discordutils"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
)

const prettyDateFormat = "02/01/2006 15:04"

var (
	errNoUser        = errors.New("interaction has no user")
	errMissingOption = errors.New("required option missing")
)

// Register saves the caller's birthday.
func (bot *Bot) Register(ctx context.Context, i *discordgo.InteractionCreate) {
	discordutils.AckInteraction(i.Interaction, bot.session)

	options := optionMap(i)
	input := ""
	if option, ok := options["data"]; ok {
		input = option.StringValue()
	}

	user := interactionUser(i)
	if user == nil {
		bot.followup(i, bot.errorEmbed(errNoUser))
		return
	}

	saved, err := bot.service.Register(ctx, user.ID, discordutils.DisplayName(user, i.Member), input)
	if err != nil {
		bot.followup(i, bot.errorEmbed(err))
		return
	}

	title := bot.catalog.T("register.updated")
	if saved.Created {
		title = bot.catalog.T("register.created")
	}
	bot.followup(i, &discordgo.MessageEmbed{
		Title:       title,
		Description: fmt.Sprintf("📅 **%v**", saved.Date),
		Color:       colorGreen,
	})
}

// Remove deletes the caller's birthday.
func (bot *Bot) Remove(ctx context.Context, i *discordgo.InteractionCreate) {
	discordutils.AckInteraction(i.Interaction, bot.session)

	user := interactionUser(i)
	if user == nil {
		bot.followup(i, bot.errorEmbed(errNoUser))
		return
	}

	removed, err := bot.service.Remove(ctx, user.ID)
	switch {
	case err != nil:
		bot.followup(i, bot.errorEmbed(err))
	case removed:
		bot.followup(i, &discordgo.MessageEmbed{Title: bot.catalog.T("remove.done"), Color: colorOrange})
	default:
		bot.followup(i, &discordgo.MessageEmbed{Title: bot.catalog.T("remove.missing"), Color: colorRed})
	}
}

// Lookup shows a member's registered birthday.
func (bot *Bot) Lookup(ctx context.Context, i *discordgo.InteractionCreate) {
	discordutils.AckInteraction(i.Interaction, bot.session)

	user := interactionUser(i)
	if option, ok := optionMap(i)["usuario"]; ok {
		user = option.UserValue(nil)
	}
	if user == nil {
		bot.followup(i, bot.errorEmbed(errNoUser))
		return
	}

	birthday, err := bot.service.Lookup(ctx, user.ID)
	switch {
	case err != nil:
		bot.followup(i, bot.errorEmbed(err))
	case birthday == nil:
		bot.followup(i, &discordgo.MessageEmbed{
			Description: bot.catalog.T("lookup.missing", user.Mention()),
			Color:       colorRed,
		})
	default:
		bot.followup(i, &discordgo.MessageEmbed{
			Description: bot.catalog.T("lookup.found", user.Mention(), birthday.Date),
			Color:       colorPurple,
		})
	}
}

// List shows the first page of registered birthdays.
func (bot *Bot) List(ctx context.Context, i *discordgo.InteractionCreate) {
	discordutils.AckInteraction(i.Interaction, bot.session)

	page, err := bot.service.List(ctx, 0)
	if err != nil {
		bot.followup(i, bot.errorEmbed(err))
		return
	}

	discordutils.SendFollowup(&discordgo.WebhookParams{
		Embeds:     bot.pageEmbeds(i.GuildID, page),
		Components: pageComponents(page),
	}, i.Interaction, bot.session)
}

// ListPage edits a birthday list message in place to show another page.
func (bot *Bot) ListPage(ctx context.Context, i *discordgo.InteractionCreate, number int) {
	data := &discordgo.InteractionResponseData{}

	page, err := bot.service.List(ctx, number)
	if err != nil {
		data.Embeds = []*discordgo.MessageEmbed{bot.errorEmbed(err)}
		data.Components = []discordgo.MessageComponent{}
	} else {
		data.Embeds = bot.pageEmbeds(i.GuildID, page)
		data.Components = pageComponents(page)
	}

	err = bot.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: data,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to update birthday list")
	}
}

// Next shows the closest upcoming birthday.
func (bot *Bot) Next(ctx context.Context, i *discordgo.InteractionCreate) {
	discordutils.AckInteraction(i.Interaction, bot.session)

	upcoming, err := bot.service.Next(ctx)
	if err != nil {
		bot.followup(i, bot.errorEmbed(err))
		return
	}
	bot.followup(i, nextEmbed(bot.catalog, upcoming))
}

// AdminAdd saves another member's birthday.
func (bot *Bot) AdminAdd(ctx context.Context, i *discordgo.InteractionCreate) {
	discordutils.AckInteraction(i.Interaction, bot.session)

	options := optionMap(i)
	userOption, hasUser := options["usuario"]
	dateOption, hasDate := options["data"]
	if !hasUser || !hasDate {
		bot.followup(i, bot.errorEmbed(dates.ErrInvalidFormat))
		return
	}

	user := userOption.UserValue(nil)
	var member *discordgo.Member
	if resolved := i.ApplicationCommandData().Resolved; resolved != nil {
		if u, ok := resolved.Users[user.ID]; ok {
			user = u
		}
		member = resolved.Members[user.ID]
	}

	saved, err := bot.service.AdminAdd(
		ctx,
		bot.actor(i),
		user.ID,
		discordutils.DisplayName(user, member),
		dateOption.StringValue(),
	)
	if err != nil {
		bot.followup(i, bot.errorEmbed(err))
		return
	}

	bot.followup(i, &discordgo.MessageEmbed{
		Title: bot.catalog.T("register.admin_saved", discordutils.DisplayName(user, member), saved.Date),
		Color: colorGreen,
	})
}

// SetChannel sets the channel to use for announcements.
func (bot *Bot) SetChannel(ctx context.Context, i *discordgo.InteractionCreate) {
	discordutils.AckInteraction(i.Interaction, bot.session)

	option, ok := optionMap(i)["canal"]
	if !ok {
		bot.followup(i, bot.errorEmbed(errMissingOption))
		return
	}
	channel := option.ChannelValue(nil)

	err := bot.service.SetChannel(ctx, bot.actor(i), i.GuildID, channel.ID)
	if err != nil {
		bot.followup(i, bot.errorEmbed(err))
		return
	}

	bot.followup(i, &discordgo.MessageEmbed{
		Description: bot.catalog.T("channel.set", channel.Mention()),
		Color:       colorGreen,
	})
}

// SetRole sets the role to give on a member's birthday.
func (bot *Bot) SetRole(ctx context.Context, i *discordgo.InteractionCreate) {
	discordutils.AckInteraction(i.Interaction, bot.session)

	option, ok := optionMap(i)["cargo"]
	if !ok {
		bot.followup(i, bot.errorEmbed(errMissingOption))
		return
	}

	role := &discordgo.Role{ID: option.Value.(string)}
	if resolved := i.ApplicationCommandData().Resolved; resolved != nil {
		if r, ok := resolved.Roles[role.ID]; ok {
			role = r
		}
	}

	err := bot.service.SetRole(
		ctx,
		bot.actor(i),
		i.GuildID,
		role.ID,
		discordutils.RoleAllowsAdminPermissions(role),
	)
	if err != nil {
		bot.followup(i, bot.errorEmbed(err))
		return
	}

	bot.followup(i, &discordgo.MessageEmbed{
		Description: bot.catalog.T("role.set", role.Mention()),
		Color:       colorGreen,
	})
}

// Ping replies with the gateway latency.
func (bot *Bot) Ping(_ context.Context, i *discordgo.InteractionCreate) {
	discordutils.AckInteraction(i.Interaction, bot.session)

	bot.followup(i, &discordgo.MessageEmbed{
		Title:       bot.catalog.T("ping.title"),
		Description: bot.catalog.T("ping.latency", bot.session.HeartbeatLatency().Milliseconds()),
		Color:       colorBlurple,
	})
}

func (bot *Bot) followup(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	discordutils.SendFollowup(
		&discordgo.WebhookParams{Embeds: []*discordgo.MessageEmbed{embed}},
		i.Interaction,
		bot.session,
	)
}

func (bot *Bot) actor(i *discordgo.InteractionCreate) commands.Actor {
	user := interactionUser(i)
	if user == nil {
		return commands.Actor{}
	}

	guild, _ := bot.session.State.Guild(i.GuildID)
	return commands.Actor{
		UserID:  user.ID,
		IsAdmin: discordutils.MemberHasAdminPermissions(guild, i.Member),
	}
}

// pageEmbeds renders one embed per birthday, with the member's avatar when
// they're still in the guild.
func (bot *Bot) pageEmbeds(guildID string, page commands.Page) []*discordgo.MessageEmbed {
	embeds := make([]*discordgo.MessageEmbed, len(page.Birthdays))
	for n, birthday := range page.Birthdays {
		avatar := ""
		if member, err := bot.session.State.Member(guildID, birthday.UserID); err == nil && member.User != nil {
			avatar = member.User.AvatarURL("128")
		}
		embeds[n] = birthdayEmbed(birthday, avatar)
	}

	if len(embeds) > 0 {
		embeds[len(embeds)-1].Footer = &discordgo.MessageEmbedFooter{
			Text: bot.catalog.T("list.footer", page.Number+1, page.Count, humanize.Comma(int64(page.Total))),
		}
	}
	return embeds
}

// errorEmbed turns a command error into the reply shown to the user.
func (bot *Bot) errorEmbed(err error) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: bot.catalog.T("error.title"), Color: colorRed}

	var cooldown *commands.CooldownError
	switch {
	case errors.Is(err, dates.ErrInvalidFormat):
		embed.Title = bot.catalog.T("register.invalid_title")
		embed.Description = bot.catalog.T("register.invalid", dates.Example)
	case errors.As(err, &cooldown):
		embed.Description = bot.catalog.T(
			"cooldown",
			cooldown.LastChange.Format(prettyDateFormat),
			humanize.Time(cooldown.NextChange),
		)
	case errors.Is(err, commands.ErrUnauthorized):
		embed.Description = bot.catalog.T("error.unauthorized")
	case errors.Is(err, commands.ErrAdminRole):
		embed.Description = bot.catalog.T("role.admin")
	case errors.Is(err, commands.ErrNoBirthdays):
		embed.Title = bot.catalog.T("list.empty")
	case errors.Is(err, errNoUser), errors.Is(err, errMissingOption):
		log.WithError(err).Warn("Malformed interaction")
		embed.Description = bot.catalog.T("error.request")
	default:
		if !errors.Is(err, dal.ErrUnavailable) {
			log.WithError(err).Error("Command failed")
		} else {
			log.WithError(err).Warn("Command failed, storage unavailable")
		}
		embed.Description = bot.catalog.T("error.storage")
	}

	return embed
}

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	byName := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, option := range options {
		byName[option.Name] = option
	}
	return byName
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}
