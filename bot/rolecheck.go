package bot

import (
	"context"
	"fmt"

	"niverbot/announcer"
	"niverbot/discordutils"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Member looks userID up in the state cache first and asks Discord otherwise.
func (bot *Bot) Member(ctx context.Context, guildID, userID string) (announcer.Member, error) {
	member, err := bot.session.State.Member(guildID, userID)
	if err != nil {
		member, err = bot.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	}
	switch {
	case discordutils.IsRESTError(err, discordgo.ErrCodeUnknownMember),
		discordutils.IsRESTError(err, discordgo.ErrCodeUnknownUser):
		return announcer.Member{}, announcer.ErrMemberNotFound
	case err != nil:
		return announcer.Member{}, fmt.Errorf("fetching member %v: %w", userID, err)
	case member.User == nil:
		return announcer.Member{}, announcer.ErrMemberNotFound
	}

	return announcer.Member{
		UserID:      member.User.ID,
		DisplayName: discordutils.DisplayName(member.User, member),
		AvatarURL:   member.AvatarURL("256"),
	}, nil
}

// Announce posts the birthday message for member in channelID.
func (bot *Bot) Announce(ctx context.Context, channelID string, member announcer.Member) error {
	_, err := bot.session.ChannelMessageSendComplex(
		channelID,
		announcementMessage(bot.catalog, member),
		discordgo.WithContext(ctx),
	)
	if discordutils.IsRESTError(err, discordgo.ErrCodeUnknownChannel) {
		return fmt.Errorf("%w: %v", announcer.ErrChannelNotFound, channelID)
	}
	return err
}

// SyncRole gives roleID to today's celebrants and removes it from any other
// member still holding it.
func (bot *Bot) SyncRole(_ context.Context, guildID, roleID string, celebrantIDs []string) error {
	guild, err := bot.session.State.Guild(guildID)
	if err != nil {
		return fmt.Errorf("finding guild %v: %w", guildID, err)
	}

	role := findRole(guild, roleID)
	if role == nil {
		log.WithFields(log.Fields{"guild": guild.Name, "role": roleID}).Warn("Birthday role no longer exists")
		return nil
	}

	celebrants := make(map[string]bool, len(celebrantIDs))
	for _, id := range celebrantIDs {
		celebrants[id] = true
	}

	expired, missing := partitionMembers(role, guild.Members, celebrants)
	discordutils.RemoveRoleFromMembers(guild, role, expired, bot.session)
	discordutils.AddRoleToMembers(guild, role, missing, bot.session)

	return nil
}

func findRole(guild *discordgo.Guild, roleID string) *discordgo.Role {
	for _, role := range guild.Roles {
		if role.ID == roleID {
			return role
		}
	}
	return nil
}

// partitionMembers splits members into those holding role without
// celebrating and celebrants still lacking it.
func partitionMembers(
	role *discordgo.Role,
	members []*discordgo.Member,
	celebrants map[string]bool,
) (expired, missing []*discordgo.Member) {
	for _, member := range members {
		if member.User == nil {
			continue
		}
		hasRole := discordutils.MemberHasRole(member, role)
		switch celebrating := celebrants[member.User.ID]; {
		case hasRole && !celebrating:
			expired = append(expired, member)
		case !hasRole && celebrating:
			missing = append(missing, member)
		}
	}
	return
}

var (
	_ announcer.Directory  = (*Bot)(nil)
	_ announcer.Notifier   = (*Bot)(nil)
	_ announcer.RoleSyncer = (*Bot)(nil)
)
