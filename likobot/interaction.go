package likobot

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/LIKO-12/Discord/docs"
	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"gorm.io/gorm"
	"log/slog"
)

// LookupSource identifies where a [MethodLookup] came from
type LookupSource string

const (
	lookupSourceMessage LookupSource = "message"
	lookupSourceAPI     LookupSource = "api"
)

const columnMethodLookupReplyMessageID = "reply_message_id"

// InteractionLog is a DB model recording every interaction received,
// whether via the gateway or the webhook server.
type InteractionLog struct {
	ModelUintID
	Method        DiscordInteractionReceiveMethod `json:"method" gorm:"type:string"` // webhook or gateway
	InteractionID string                          `json:"interaction_id" gorm:"not null"`
	Type          string                          `json:"type" gorm:"type:string"`
	Command       string                          `json:"command" gorm:"type:string"`
	UserID        string                          `json:"user_id" gorm:"not null"`
	Username      string                          `json:"username" gorm:"type:string"`
	AppID         string                          `json:"application_id" gorm:"type:string"`
	GuildID       string                          `json:"guild_id" gorm:"type:string"`
	ChannelID     string                          `json:"channel_id" gorm:"type:string"`
	Payload       string                          `json:"payload" gorm:"type:string"`
	CreatedAt     int64                           `gorm:"autoCreateTime:milli" json:"created_at,omitempty"`
}

func newInteractionLog(
	i *discordgo.InteractionCreate,
	u *discordgo.User,
	handler InteractionHandler,
) (*InteractionLog, error) {
	p, err := json.Marshal(i)
	if err != nil {
		return nil, fmt.Errorf("error marshaling interaction: %w", err)
	}

	interactionLog := &InteractionLog{
		InteractionID: i.ID,
		Type:          i.Type.String(),
		AppID:         i.AppID,
		GuildID:       i.GuildID,
		ChannelID:     i.ChannelID,
		Payload:       string(p),
		Method:        handler.InteractionReceiveMethod(),
	}
	if i.Type == discordgo.InteractionApplicationCommand {
		interactionLog.Command = i.ApplicationCommandData().Name
	}
	if u != nil {
		interactionLog.UserID = u.ID
		interactionLog.Username = u.String()
	}
	return interactionLog, nil
}

// MethodLookup is a DB model recording a single method lookup, and
// how the query was resolved.
type MethodLookup struct {
	ModelUintID
	Source         LookupSource `json:"source" gorm:"type:string;index"`
	Query          string       `json:"query" gorm:"not null"`
	Usage          int          `json:"usage"`
	Kind           string       `json:"kind" gorm:"type:string"`
	Matched        string       `json:"matched,omitempty" gorm:"type:string"`
	LongerMatches  int          `json:"longer_matches"`
	ShorterMatches int          `json:"shorter_matches"`
	UserID         string       `json:"user_id,omitempty" gorm:"type:string;index"`
	Username       string       `json:"username,omitempty" gorm:"type:string"`
	GuildID        string       `json:"guild_id,omitempty" gorm:"type:string"`
	ChannelID      string       `json:"channel_id,omitempty" gorm:"type:string"`
	InteractionID  string       `json:"interaction_id,omitempty" gorm:"type:string"`
	MessageID      string       `json:"message_id,omitempty" gorm:"type:string"`
	ReplyMessageID string       `json:"reply_message_id,omitempty" gorm:"type:string"`
	CreatedAt      int64        `gorm:"autoCreateTime:milli;index" json:"created_at,omitempty"`
}

// setResolution records how the lookup's query was resolved
func (m *MethodLookup) setResolution(res docs.Resolution) {
	m.Query = res.Query
	m.Kind = res.Kind.String()
	m.LongerMatches = len(res.Longer)
	m.ShorterMatches = len(res.Shorter)
	if res.Entry != nil {
		m.Matched = res.Entry.FormattedName
	}
}

func (m *MethodLookup) setUser(u *discordgo.User) {
	if u == nil {
		return
	}
	m.UserID = u.ID
	m.Username = u.String()
}

func (m MethodLookup) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("source", string(m.Source)),
		slog.String("query", m.Query),
		slog.Int("usage", m.Usage),
		slog.String("kind", m.Kind),
		slog.String("matched", m.Matched),
		slog.Int("longer_matches", m.LongerMatches),
		slog.Int("shorter_matches", m.ShorterMatches),
	)
}

// recentMethodLookups returns lookups newest-first
func recentMethodLookups(
	ctx context.Context,
	db *gorm.DB,
	p Pagination,
) ([]MethodLookup, error) {
	var lookups []MethodLookup
	order := "created_at desc, id desc"
	if p.Order == Ascending {
		order = "created_at asc, id asc"
	}
	rv := db.WithContext(ctx).Order(order).Limit(p.Limit).Offset(p.Offset).Find(&lookups)
	return lookups, rv.Error
}

// InteractionHandler defines the interface for handling Discord interactions.
// This enables lookups to be served the same way regardless of whether
// the interaction came in via the gateway or the webhook server.
type InteractionHandler interface {
	// Respond sends an initial response to a Discord interaction.
	Respond(ctx context.Context, i *discordgo.InteractionResponse) error

	// GetInteraction returns the original InteractionCreate event.
	GetInteraction() *discordgo.InteractionCreate

	// InteractionReceiveMethod returns the method used to receive the
	// interaction (webhook or gateway).
	InteractionReceiveMethod() DiscordInteractionReceiveMethod

	// Logger returns the logger associated with this handler.
	Logger() *slog.Logger
}

// GatewayHandler implements [InteractionHandler] when receiving interactions
// via the discord websocket gateway.
type GatewayHandler struct {
	session     DiscordSessionHandler
	interaction *discordgo.InteractionCreate
	logger      *slog.Logger
}

func (GatewayHandler) InteractionReceiveMethod() DiscordInteractionReceiveMethod {
	return discordInteractionReceiveMethodGateway
}

func (w GatewayHandler) Respond(
	ctx context.Context,
	response *discordgo.InteractionResponse,
) error {
	err := w.session.InteractionRespond(w.interaction.Interaction, response)
	if err != nil {
		w.logger.ErrorContext(ctx, "error responding to interaction", tint.Err(err))
	} else {
		w.logger.InfoContext(ctx, "responded to interaction")
	}
	return err
}

func (w GatewayHandler) GetInteraction() *discordgo.InteractionCreate {
	return w.interaction
}

func (w GatewayHandler) Logger() *slog.Logger {
	return w.logger
}
