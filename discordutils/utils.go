package discordutils

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// MemberHasAdminPermissions returns true if the given member has admin
// permissions, either as computed by Discord for an interaction or through
// one of their roles in guild. guild may be nil.
func MemberHasAdminPermissions(guild *discordgo.Guild, member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	if member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	if guild == nil {
		return false
	}
	if member.User != nil && member.User.ID == guild.OwnerID {
		return true
	}

	guildRoles := make(map[string]*discordgo.Role)
	for _, role := range guild.Roles {
		guildRoles[role.ID] = role
	}

	for _, roleID := range member.Roles {
		if role, ok := guildRoles[roleID]; ok {
			if RoleAllowsAdminPermissions(role) {
				return true
			}
		}
	}

	return false
}

// RoleAllowsAdminPermissions returns true if the given role allows admin permissions.
func RoleAllowsAdminPermissions(role *discordgo.Role) bool {
	return role != nil && role.Permissions&discordgo.PermissionAdministrator != 0
}

// IsRESTError reports whether err is a Discord API error with the given code,
// e.g. discordgo.ErrCodeUnknownChannel.
func IsRESTError(err error, code int) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Message != nil && restErr.Message.Code == code
}

// AckInteraction sends a deferred response for the given interaction.
func AckInteraction(
	interaction *discordgo.Interaction,
	session *discordgo.Session,
) {
	err := session.InteractionRespond(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to acknowledge interaction")
	}
}

// SendFollowup creates a followup message for a deferred interaction.
func SendFollowup(
	params *discordgo.WebhookParams,
	interaction *discordgo.Interaction,
	session *discordgo.Session,
) {
	_, err := session.FollowupMessageCreate(interaction, true, params)
	if err != nil {
		log.WithError(err).Warn("Failed to send followup")
	}
}

// AddRoleToMembers adds the given role to all given members.
func AddRoleToMembers(
	guild *discordgo.Guild,
	role *discordgo.Role,
	members []*discordgo.Member,
	session *discordgo.Session,
) {
	for _, member := range members {
		err := session.GuildMemberRoleAdd(guild.ID, member.User.ID, role.ID)
		entry := log.WithFields(log.Fields{
			"role":  role.Name,
			"user":  member.User.Username,
			"nick":  member.Nick,
			"guild": guild.Name,
		})

		if err != nil {
			entry.WithError(err).Warn("Failed to add birthday role")
		} else {
			entry.Info("Added birthday role")
		}
	}
}

// RemoveRoleFromMembers removes the given role from all given members.
func RemoveRoleFromMembers(
	guild *discordgo.Guild,
	role *discordgo.Role,
	members []*discordgo.Member,
	session *discordgo.Session,
) {
	for _, member := range members {
		err := session.GuildMemberRoleRemove(guild.ID, member.User.ID, role.ID)
		entry := log.WithFields(log.Fields{
			"role":  role.Name,
			"user":  member.User.Username,
			"nick":  member.Nick,
			"guild": guild.Name,
		})

		if err != nil {
			entry.WithError(err).Warn("Failed to remove birthday role")
		} else {
			entry.Info("Removed birthday role")
		}
	}
}

// MemberHasRole returns true if the given member has the given role.
func MemberHasRole(member *discordgo.Member, role *discordgo.Role) bool {
	for _, roleID := range member.Roles {
		if roleID == role.ID {
			return true
		}
	}
	return false
}

// DisplayName picks the name a member is shown with: guild nickname, then
// global display name, then username. member may be nil.
func DisplayName(user *discordgo.User, member *discordgo.Member) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if user == nil {
		return ""
	}
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}
