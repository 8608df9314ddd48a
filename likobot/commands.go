package likobot

import (
	"context"
	"errors"
	"github.com/LIKO-12/Discord/docs"
	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"strconv"
	"strings"
)

var errLibraryNotLoaded = errors.New("documentation not loaded yet")

// prefixCommand is a command parsed from a chat message, like
// ".method clear 2"
type prefixCommand struct {
	Name string
	Args []string
}

// parsePrefixCommand splits content into a command name and its
// arguments. ok is false if content doesn't start with prefix directly
// followed by a command name.
func parsePrefixCommand(content string, prefix string) (cmd prefixCommand, ok bool) {
	if prefix == "" {
		return cmd, false
	}
	rest, found := strings.CutPrefix(strings.TrimSpace(content), prefix)
	if !found || rest == "" || strings.TrimLeft(rest, " \t\n") != rest {
		return cmd, false
	}
	fields := strings.Fields(rest)
	cmd.Name = strings.ToLower(fields[0])
	cmd.Args = fields[1:]
	return cmd, true
}

// parseUsageArg converts the optional usage argument of the method
// command. Anything that isn't a number leaves the usage unselected.
func parseUsageArg(args []string) int {
	if len(args) == 0 {
		return docs.UsageUnselected
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return docs.UsageUnselected
	}
	return n
}

// lookupMethod resolves query against the loaded library, and saves
// lookup with the outcome. Failing to save is logged, not returned.
func (b *LikoBot) lookupMethod(
	ctx context.Context,
	lookup *MethodLookup,
	query string,
) (docs.Resolution, *discordgo.MessageEmbed, error) {
	_, logger := b.getLogger(ctx)

	lib := b.library.Load()
	if lib == nil {
		return docs.Resolution{Query: query}, nil, errLibraryNotLoaded
	}

	res := lib.index.Resolve(query)
	embed := resolutionEmbed(lib.formatter, res, lookup.Usage)

	lookup.setResolution(res)
	logger.InfoContext(ctx, "resolved method", "lookup", lookup)

	if b.writeDB != nil {
		if _, err := b.writeDB.Create(ctx, lookup); err != nil {
			logger.ErrorContext(ctx, "error saving method lookup", tint.Err(err))
		}
	}
	return res, embed, nil
}

// searchMethods runs a full-text search and renders the hits
func (b *LikoBot) searchMethods(
	ctx context.Context,
	query string,
	limit int,
) ([]docs.SearchHit, *discordgo.MessageEmbed, error) {
	lib := b.library.Load()
	if lib == nil {
		return nil, nil, errLibraryNotLoaded
	}
	hits, err := lib.searcher.Search(ctx, query, limit)
	if err != nil {
		return nil, nil, err
	}
	return hits, searchEmbed(lib.formatter, query, hits), nil
}

// handleMessageCommand runs a prefix command received as a chat message
func (b *LikoBot) handleMessageCommand(
	ctx context.Context,
	m *discordgo.MessageCreate,
	user *discordgo.User,
	cmd prefixCommand,
) {
	_, logger := b.getLogger(ctx)
	session := b.discord.session

	switch cmd.Name {
	case DiscordSlashCommandPing:
		if _, err := session.ChannelMessageSendComplex(
			m.ChannelID,
			&discordgo.MessageSend{Content: pongMessage},
		); err != nil {
			logger.ErrorContext(ctx, "error sending pong", tint.Err(err))
		}
	case DiscordSlashCommandMethod:
		if len(cmd.Args) == 0 {
			if _, err := session.ChannelMessageSendComplex(
				m.ChannelID,
				&discordgo.MessageSend{
					Embeds: []*discordgo.MessageEmbed{usageEmbed(b.config.CommandPrefix, user)},
				},
			); err != nil {
				logger.ErrorContext(ctx, "error sending usage", tint.Err(err))
			}
			return
		}

		lookup := &MethodLookup{
			Source:    lookupSourceMessage,
			Usage:     parseUsageArg(cmd.Args[1:]),
			GuildID:   m.GuildID,
			ChannelID: m.ChannelID,
			MessageID: m.ID,
		}
		lookup.setUser(user)

		_, embed, err := b.lookupMethod(ctx, lookup, cmd.Args[0])
		if err != nil {
			logger.WarnContext(ctx, "unable to lookup method", tint.Err(err))
			return
		}
		msg, err := session.ChannelMessageSendComplex(
			m.ChannelID,
			&discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}},
		)
		if err != nil {
			logger.ErrorContext(ctx, "error sending method embed", tint.Err(err))
			return
		}
		if msg != nil && lookup.ID != 0 {
			if _, err = b.writeDB.Updates(
				ctx,
				lookup,
				map[string]any{columnMethodLookupReplyMessageID: msg.ID},
			); err != nil {
				logger.ErrorContext(ctx, "error updating method lookup", tint.Err(err))
			}
		}
	case DiscordSlashCommandSearch:
		if len(cmd.Args) == 0 {
			return
		}
		_, embed, err := b.searchMethods(ctx, strings.Join(cmd.Args, " "), docs.DefaultSearchLimit)
		if err != nil {
			logger.ErrorContext(ctx, "error searching", tint.Err(err))
			return
		}
		if _, err = session.ChannelMessageSendComplex(
			m.ChannelID,
			&discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}},
		); err != nil {
			logger.ErrorContext(ctx, "error sending search results", tint.Err(err))
		}
	default:
		logger.DebugContext(ctx, "ignoring unknown command", "command", cmd.Name)
	}
}

// handleApplicationCommand runs a slash command, returning the response
// to send
func (b *LikoBot) handleApplicationCommand(
	ctx context.Context,
	handler InteractionHandler,
	user *discordgo.User,
) *discordgo.InteractionResponse {
	_, logger := b.getLogger(ctx)
	i := handler.GetInteraction()
	data := i.ApplicationCommandData()

	switch data.Name {
	case DiscordSlashCommandPing:
		return messageResponse(&discordgo.InteractionResponseData{Content: pongMessage})
	case DiscordSlashCommandMethod:
		options := discordInteractionOptions(i)
		nameOpt, ok := options[methodCommandNameOption]
		if !ok {
			return messageResponse(
				&discordgo.InteractionResponseData{
					Embeds: []*discordgo.MessageEmbed{usageEmbed(b.config.CommandPrefix, user)},
					Flags:  discordgo.MessageFlagsEphemeral,
				},
			)
		}
		lookup := &MethodLookup{
			Source:        LookupSource(handler.InteractionReceiveMethod()),
			Usage:         docs.UsageUnselected,
			GuildID:       i.GuildID,
			ChannelID:     i.ChannelID,
			InteractionID: i.ID,
		}
		if usageOpt, hasUsage := options[methodCommandUsageOption]; hasUsage {
			lookup.Usage = int(usageOpt.IntValue())
		}
		lookup.setUser(user)

		_, embed, err := b.lookupMethod(ctx, lookup, nameOpt.StringValue())
		if err != nil {
			logger.WarnContext(ctx, "unable to lookup method", tint.Err(err))
			return errorResponse(err)
		}
		return messageResponse(
			&discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
		)
	case DiscordSlashCommandSearch:
		query := ""
		if opt, ok := discordInteractionOptions(i)[searchCommandQueryOption]; ok {
			query = opt.StringValue()
		}
		_, embed, err := b.searchMethods(ctx, query, docs.DefaultSearchLimit)
		if err != nil {
			logger.ErrorContext(ctx, "error searching", tint.Err(err))
			return errorResponse(err)
		}
		return messageResponse(
			&discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
		)
	default:
		logger.WarnContext(ctx, "unknown command", "command", data.Name)
		return messageResponse(
			&discordgo.InteractionResponseData{
				Content: "Unknown command",
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		)
	}
}

func messageResponse(data *discordgo.InteractionResponseData) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}
}

func errorResponse(err error) *discordgo.InteractionResponse {
	msg := "Something went wrong, try again later"
	if errors.Is(err, errLibraryNotLoaded) {
		msg = "The documentation is still loading, try again in a moment"
	}
	return messageResponse(
		&discordgo.InteractionResponseData{
			Content: msg,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	)
}
