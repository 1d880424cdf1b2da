package bot

import (
	"context"
	"fmt"
	"time"

	"niverbot/commands"
	"niverbot/dates"
	"niverbot/messages"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const interactionTimeout = 10 * time.Second

type commandHandler = func(context.Context, *discordgo.InteractionCreate)

var (
	adminPermission int64 = discordgo.PermissionAdministrator
	dmPermission          = false
)

var botCommands = []*discordgo.ApplicationCommand{
	{
		Name:         "aniversario",
		Description:  "Registra o seu aniversário.",
		DMPermission: &dmPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "data",
				Description: fmt.Sprintf("Seu aniversário (formato: %v)", dates.Format),
				Required:    true,
			},
		},
	}, {
		Name:         "removeraniversario",
		Description:  "Remove o seu aniversário.",
		DMPermission: &dmPermission,
	}, {
		Name:         "aniversariantes",
		Description:  "Lista os aniversários registrados.",
		DMPermission: &dmPermission,
	}, {
		Name:         "proximoaniversario",
		Description:  "Mostra o próximo aniversário.",
		DMPermission: &dmPermission,
	}, {
		Name:         "aniversariode",
		Description:  "Mostra o aniversário de alguém.",
		DMPermission: &dmPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "usuario",
				Description: "Quem procurar. Por padrão, você.",
				Required:    false,
			},
		},
	}, {
		Name:                     "addaniversario",
		Description:              "Registra o aniversário de outro membro.",
		DefaultMemberPermissions: &adminPermission,
		DMPermission:             &dmPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "usuario",
				Description: "O membro.",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "data",
				Description: fmt.Sprintf("Aniversário (formato: %v)", dates.Format),
				Required:    true,
			},
		},
	}, {
		Name:                     "canalaniversario",
		Description:              "Define o canal dos anúncios de aniversário.",
		DefaultMemberPermissions: &adminPermission,
		DMPermission:             &dmPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         "canal",
				Description:  "O canal a usar.",
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				Required:     true,
			},
		},
	}, {
		Name:                     "cargoaniversario",
		Description:              "Define o cargo dado no dia do aniversário.",
		DefaultMemberPermissions: &adminPermission,
		DMPermission:             &dmPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionRole,
				Name:        "cargo",
				Description: "O cargo a usar.",
				Required:    true,
			},
		},
	}, {
		Name:        "ping",
		Description: "Mostra a latência do bot.",
	},
}

// Bot represents a running instance of the birthday bot.
type Bot struct {
	session            *discordgo.Session
	service            *commands.Service
	catalog            *messages.Catalog
	guildID            string
	registeredCommands []*discordgo.ApplicationCommand
	commandHandlers    map[string]commandHandler
}

// New connects to Discord and registers the slash commands, in guildID only
// when it is set and globally otherwise.
func New(
	token string,
	guildID string,
	service *commands.Service,
	catalog *messages.Catalog,
) (*Bot, error) {
	bot := &Bot{service: service, catalog: catalog, guildID: guildID}

	bot.commandHandlers = map[string]commandHandler{
		"aniversario":        bot.Register,
		"removeraniversario": bot.Remove,
		"aniversariantes":    bot.List,
		"proximoaniversario": bot.Next,
		"aniversariode":      bot.Lookup,
		"addaniversario":     bot.AdminAdd,
		"canalaniversario":   bot.SetChannel,
		"cargoaniversario":   bot.SetRole,
		"ping":               bot.Ping,
	}

	if err := bot.initSession(token); err != nil {
		return nil, err
	}
	if err := bot.registerCommands(); err != nil {
		bot.Shutdown()
		return nil, err
	}

	return bot, nil
}

func (bot *Bot) initSession(token string) error {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("creating discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

	session.AddHandler(func(*discordgo.Session, *discordgo.Ready) {
		log.Println("Bot is up!")
	})
	session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		bot.dispatch(i)
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}

	bot.session = session
	return nil
}

func (bot *Bot) dispatch(i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if handler, ok := bot.commandHandlers[i.ApplicationCommandData().Name]; ok {
			handler(ctx, i)
		}
	case discordgo.InteractionMessageComponent:
		if page, ok := pageFromCustomID(i.MessageComponentData().CustomID); ok {
			bot.ListPage(ctx, i, page)
		}
	}
}

func (bot *Bot) registerCommands() error {
	for _, command := range botCommands {
		newCommand, err := bot.session.ApplicationCommandCreate(
			bot.session.State.User.ID,
			bot.guildID,
			command,
		)
		if err != nil {
			return fmt.Errorf("creating %v command: %w", command.Name, err)
		}
		bot.registeredCommands = append(bot.registeredCommands, newCommand)
		log.Printf("Created %v command.", command.Name)
	}
	return nil
}

// Shutdown removes the registered commands and closes the session.
func (bot *Bot) Shutdown() {
	log.Println("Shutting down.")

	for _, command := range bot.registeredCommands {
		err := bot.session.ApplicationCommandDelete(
			bot.session.State.User.ID,
			bot.guildID,
			command.ID,
		)
		if err != nil {
			log.WithError(err).Printf("Failed to delete %v command.", command.Name)
		} else {
			log.Printf("Deleted %v command.", command.Name)
		}
	}

	if err := bot.session.Close(); err != nil {
		log.WithError(err).Warn("Failed to close discord session")
	}
}
