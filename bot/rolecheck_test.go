package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestPartitionMembers(t *testing.T) {
	role := &discordgo.Role{ID: "bday"}
	member := func(id string, roles ...string) *discordgo.Member {
		return &discordgo.Member{User: &discordgo.User{ID: id}, Roles: roles}
	}

	stale := member("stale", "bday")
	keep := member("keep", "bday")
	fresh := member("fresh", "other")
	bystander := member("bystander")

	expired, missing := partitionMembers(
		role,
		[]*discordgo.Member{stale, keep, fresh, bystander, {}},
		map[string]bool{"keep": true, "fresh": true},
	)

	assert.Equal(t, []*discordgo.Member{stale}, expired)
	assert.Equal(t, []*discordgo.Member{fresh}, missing)
}

func TestFindRole(t *testing.T) {
	guild := &discordgo.Guild{Roles: []*discordgo.Role{{ID: "a"}, {ID: "b"}}}

	assert.Equal(t, "b", findRole(guild, "b").ID)
	assert.Nil(t, findRole(guild, "c"))
}
