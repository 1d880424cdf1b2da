package models

// GuildConfig holds a guild's announcement settings and the last day the
// scheduler handled it.
type GuildConfig struct {
	GuildID              string `gorm:"primaryKey" json:"-" bson:"guild_id"`
	ChannelID            string `gorm:"column:channel_id" json:"channel_id,omitempty" bson:"channel_id,omitempty"`
	RoleID               string `gorm:"column:role_id" json:"role_id,omitempty" bson:"role_id,omitempty"`
	LastAnnouncementDate string `gorm:"column:last_announcement_date" json:"last_announcement_date,omitempty" bson:"last_announcement_date,omitempty"`
}

// HasChannel reports whether an announcement channel is configured.
func (c GuildConfig) HasChannel() bool {
	return c.ChannelID != ""
}
