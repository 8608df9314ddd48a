package likobot

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"log/slog"
	"net/http"
	"os"
	"testing"
)

func TestDiscord_HandlersConnectDisconnect(t *testing.T) {
	d := &Discord{
		logger:  slog.Default(),
		config:  &DiscordConfig{},
		session: newMockDiscordSession(),
	}
	require.False(t, d.connected.Load())
	require.Equal(t, int64(0), d.metricConnects.Load())
	require.Equal(t, int64(0), d.metricDisconnects.Load())

	sess := &discordgo.Session{
		State: &discordgo.State{
			Ready: discordgo.Ready{
				SessionID: t.Name(),
				User: &discordgo.User{
					ID:       t.Name(),
					Username: t.Name(),
				},
			},
		},
	}

	handler := d.handlerConnect()
	handler(sess, nil)
	assert.True(t, d.connected.Load())
	assert.Equal(t, int64(1), d.metricConnects.Load())
	assert.Equal(t, int64(0), d.metricDisconnects.Load())

	disconnectHandler := d.handlerDisconnect()
	disconnectHandler(sess, nil)
	assert.False(t, d.connected.Load())
	assert.Equal(t, int64(1), d.metricDisconnects.Load())
	assert.Equal(t, int64(1), d.metricConnects.Load())

	// no state at all shouldn't panic
	handler(&discordgo.Session{}, nil)
	assert.True(t, d.connected.Load())

	ready := d.handlerReady()
	assert.NotPanics(
		t, func() {
			ready(sess, &discordgo.Ready{SessionID: t.Name()})
		},
	)
}

func TestDiscord_Commands(t *testing.T) {
	d := &Discord{}
	cmds := d.commands()
	names := make([]string, 0, len(cmds))
	for _, c := range cmds {
		names = append(names, c.Name)
		assert.NotEmpty(t, c.Description)
	}
	assert.Equal(
		t,
		[]string{
			DiscordSlashCommandMethod,
			DiscordSlashCommandSearch,
			DiscordSlashCommandPing,
		},
		names,
	)

	method := d.appCommandMethod()
	require.Len(t, method.Options, 2)
	assert.Equal(t, methodCommandNameOption, method.Options[0].Name)
	assert.True(t, method.Options[0].Required)
	assert.Equal(t, methodCommandUsageOption, method.Options[1].Name)
	assert.False(t, method.Options[1].Required)
	require.NotNil(t, method.Options[1].MinValue)
	assert.Equal(t, float64(0), *method.Options[1].MinValue)
}

func TestDiscord_RegisterCommands(t *testing.T) {
	session := newMockDiscordSession()
	d := &Discord{
		logger:  slog.Default(),
		config:  &DiscordConfig{ApplicationID: "app", GuildID: "guild"},
		session: session,
	}
	created, err := d.registerCommands()
	require.NoError(t, err)
	assert.Len(t, created, len(d.commands()))

	overwrite := <-session.commandsCreated
	assert.Equal(t, "app", overwrite.AppID)
	assert.Equal(t, "guild", overwrite.GuildID)
}

func TestNewDiscord_PublicKey(t *testing.T) {
	pubkey, _ := generateDiscordKey(t)

	d, err := newDiscord(
		&DiscordConfig{WebhookServer: DiscordWebhookServerConfig{PublicKey: pubkey}},
	)
	require.NoError(t, err)
	assert.Len(t, d.publicKey, ed25519.PublicKeySize)

	d, err = newDiscord(
		&DiscordConfig{WebhookServer: DiscordWebhookServerConfig{PublicKey: "not hex"}},
	)
	require.Error(t, err)
	assert.NotNil(t, d)

	_, err = newDiscord(
		&DiscordConfig{WebhookServer: DiscordWebhookServerConfig{PublicKey: "abcd"}},
	)
	require.ErrorContains(t, err, "invalid public key length")
}

func TestDiscordSession_SetLogLevel(t *testing.T) {
	session := DiscordSession{session: &discordgo.Session{}, logger: slog.Default()}

	testCases := []struct {
		level    slog.Level
		expected int
	}{
		{slog.LevelDebug, discordgo.LogDebug},
		{slog.LevelInfo, discordgo.LogInformational},
		{slog.LevelWarn, discordgo.LogWarning},
		{slog.LevelError, discordgo.LogError},
	}
	for _, tc := range testCases {
		t.Run(
			tc.level.String(), func(t *testing.T) {
				require.NoError(t, session.SetLogLevel(tc.level))
				assert.Equal(t, tc.expected, session.session.LogLevel)
			},
		)
	}

	assert.Error(t, session.SetLogLevel(slog.Level(3)))
}

// mockDiscordSession is a mock implementation of the DiscordSessionHandler interface.
//
// Messages sent and commands registered are pushed to channels, so tests
// can validate what would have been sent to discord.
type mockDiscordSession struct {
	logger          *slog.Logger
	logLevel        *slog.LevelVar
	messagesSent    chan *stubChannelMessageSend
	commandsCreated chan *stubCommandOverwrite
	interactions    chan *discordgo.InteractionResponse
	errorOnSend     error
	panicOnSend     bool
}

type stubChannelMessageSend struct {
	ChannelID string
	Message   *discordgo.MessageSend
}

type stubCommandOverwrite struct {
	AppID    string
	GuildID  string
	Commands []*discordgo.ApplicationCommand
}

func newMockDiscordSession() mockDiscordSession {
	m := mockDiscordSession{
		logLevel:        &slog.LevelVar{},
		messagesSent:    make(chan *stubChannelMessageSend, 100),
		commandsCreated: make(chan *stubCommandOverwrite, 100),
		interactions:    make(chan *discordgo.InteractionResponse, 100),
	}
	m.logLevel.Set(slog.LevelWarn)
	m.logger = slog.New(
		tint.NewHandler(
			os.Stdout, &tint.Options{
				Level:     m.logLevel,
				AddSource: true,
			},
		),
	).With(loggerNameKey, "discord_session_handler")
	return m
}

func (d mockDiscordSession) Open() error {
	d.logger.Info("opened session")
	return nil
}

func (d mockDiscordSession) Close() error {
	d.logger.Info("closed session")
	return nil
}

func (d mockDiscordSession) ChannelMessageSendComplex(
	channelID string,
	data *discordgo.MessageSend,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	if d.panicOnSend {
		panic(fmt.Sprintf("panicked sending to %s", channelID))
	}
	if d.errorOnSend != nil {
		return nil, d.errorOnSend
	}
	d.logger.Info("saw message send", "channel_id", channelID)
	d.messagesSent <- &stubChannelMessageSend{ChannelID: channelID, Message: data}
	return &discordgo.Message{
		ID:        fmt.Sprintf("reply_%s", channelID),
		ChannelID: channelID,
		Content:   data.Content,
		Embeds:    data.Embeds,
	}, nil
}

func (d mockDiscordSession) ApplicationCommandBulkOverwrite(
	appID string,
	guildID string,
	commands []*discordgo.ApplicationCommand,
	_ ...discordgo.RequestOption,
) ([]*discordgo.ApplicationCommand, error) {
	d.logger.Info(
		"overwrite application commands",
		"app_id", appID,
		"guild_id", guildID,
	)
	d.commandsCreated <- &stubCommandOverwrite{
		AppID:    appID,
		GuildID:  guildID,
		Commands: commands,
	}
	cmds := make([]*discordgo.ApplicationCommand, len(commands))
	for i, c := range commands {
		cmds[i] = &discordgo.ApplicationCommand{
			Name:        c.Name,
			Description: c.Description,
		}
	}
	return cmds, nil
}

func (d mockDiscordSession) AddHandler(_ any) func() {
	d.logger.Info("added handler")
	return func() {
		d.logger.Info("mock-removed handler function")
	}
}

func (d mockDiscordSession) InteractionRespond(
	interaction *discordgo.Interaction,
	resp *discordgo.InteractionResponse,
	_ ...discordgo.RequestOption,
) error {
	d.logger.Info(
		"mock responding to interaction",
		"interaction_id", interaction.ID,
	)
	d.interactions <- resp
	return nil
}

func (d mockDiscordSession) SetHTTPClient(_ *http.Client) {
	d.logger.Info("mock setting http client")
}

func (d mockDiscordSession) SetIdentify(_ discordgo.Identify) {
	d.logger.Info("mock setting identify")
}

func (d mockDiscordSession) SetLogLevel(lvl slog.Level) error {
	d.logLevel.Set(lvl)
	return nil
}

// stubInteractionHandler records interaction responses instead of
// sending them
type stubInteractionHandler struct {
	GatewayHandler

	callRespond chan *discordgo.InteractionResponse
}

func newStubInteractionHandler(
	t testing.TB,
	i *discordgo.InteractionCreate,
) stubInteractionHandler {
	t.Helper()
	return stubInteractionHandler{
		callRespond: make(chan *discordgo.InteractionResponse, 100),
		GatewayHandler: GatewayHandler{
			session:     newMockDiscordSession(),
			interaction: i,
			logger:      slog.Default().With("test_name", t.Name()),
		},
	}
}

func (s stubInteractionHandler) InteractionReceiveMethod() DiscordInteractionReceiveMethod {
	return DiscordInteractionReceiveMethod("testcase")
}

func (s stubInteractionHandler) Respond(
	_ context.Context,
	i *discordgo.InteractionResponse,
) error {
	s.callRespond <- i
	return nil
}

// generateDiscordKey creates an ed25519 public/private key pair to be
// used when testing the webhook handler
func generateDiscordKey(t testing.TB) (publicKey string, privateKey ed25519.PrivateKey) {
	t.Helper()
	pubkey, privkey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("error generating key pair: %v", err)
	}
	return hex.EncodeToString(pubkey), privkey
}

// newDiscordUser creates a new discordgo.User with the test name as
// the user ID, with the user ID also included in the username and global name
func newDiscordUser(t testing.TB) *discordgo.User {
	t.Helper()
	return &discordgo.User{
		ID:         t.Name(),
		Username:   fmt.Sprintf("u_%s", t.Name()),
		GlobalName: fmt.Sprintf("g_%s", t.Name()),
	}
}

// newMethodInteraction creates a `/method` slash command interaction.
// A negative usage leaves the usage_id option out.
func newMethodInteraction(
	t testing.TB,
	u *discordgo.User,
	methodName string,
	usage int,
) *discordgo.InteractionCreate {
	t.Helper()
	options := []*discordgo.ApplicationCommandInteractionDataOption{
		{
			Name:  methodCommandNameOption,
			Type:  discordgo.ApplicationCommandOptionString,
			Value: methodName,
		},
	}
	if usage >= 0 {
		options = append(
			options,
			&discordgo.ApplicationCommandInteractionDataOption{
				Name:  methodCommandUsageOption,
				Type:  discordgo.ApplicationCommandOptionInteger,
				Value: float64(usage),
			},
		)
	}
	return newCommandInteraction(t, u, DiscordSlashCommandMethod, options...)
}

func newCommandInteraction(
	t testing.TB,
	u *discordgo.User,
	name string,
	options ...*discordgo.ApplicationCommandInteractionDataOption,
) *discordgo.InteractionCreate {
	t.Helper()
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			ID:        fmt.Sprintf("interaction_%s", t.Name()),
			AppID:     "app_id",
			ChannelID: "channel",
			User:      u,
			Data: discordgo.ApplicationCommandInteractionData{
				CommandType: discordgo.ChatApplicationCommand,
				Name:        name,
				Options:     options,
			},
		},
	}
}

var errSendFailed = errors.New("send failed")
