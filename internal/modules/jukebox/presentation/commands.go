package presentation

import "github.com/bwmarrin/discordgo"

// Commands returns all slash commands for the jukebox module.
func Commands() []*discordgo.ApplicationCommand {
	manageGuild := int64(discordgo.PermissionManageGuild)

	return []*discordgo.ApplicationCommand{
		{
			Name:                     "setup",
			Description:              "Turn a text channel into the jukebox request channel",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Text channel to use (defaults to the current channel)",
					Required:    false,
					ChannelTypes: []discordgo.ChannelType{
						discordgo.ChannelTypeGuildText,
					},
				},
			},
		},
		{
			Name:                     "teardown",
			Description:              "Remove the jukebox from this server",
			DefaultMemberPermissions: &manageGuild,
		},
		{
			Name:        "info",
			Description: "Show what's playing and the queue",
		},
		{
			Name:        "mix",
			Description: "Fill the queue with tracks similar to the current one",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "count",
					Description: "How many tracks to add (default 10, max 30)",
					Required:    false,
					MinValue:    floatPtr(1),
					MaxValue:    30,
				},
			},
		},
	}
}

func floatPtr(f float64) *float64 {
	return &f
}
