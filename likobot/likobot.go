package likobot

import (
	"context"
	"errors"
	"fmt"
	"github.com/LIKO-12/Discord/docs"
	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// When building, set these like:
	// -ldflags "-X github.com/LIKO-12/Discord/likobot.Version=$$(date +'%Y%m%d')"

	Version   = "dev"
	CommitSHA = "unknown"
	BuildTime = "unknown"
)

var shutdownAnnouncementInterval = 10 * time.Second

// LikoBot is the LIKO-12 documentation bot. It answers method lookups
// received as chat messages (via the gateway), as slash commands (via the
// gateway or the webhook server), and over the HTTP API.
type LikoBot struct {
	config *Config

	// Read connection. Writes go through writeDB.
	db *gorm.DB

	// gorm.DB wrapper for write operations. With sqlite, writes are
	// serialized by a mutex.
	writeDB DBI

	// Standard logger. Missing loggers will try to use this,
	// and fall back to slog.Default()
	logger *slog.Logger

	logHandler slog.Handler

	// Handles discord integration, sessions
	discord *Discord

	// The documentation, swapped in whole when (re)loaded
	library atomic.Pointer[library]

	formatter docs.Formatter

	api *API

	// Provides a webhook endpoint to use to receive Discord
	// interactions when the websocket/gateway isn't being used
	discordWebhookServer *DiscordWebhookServer

	// Handler for interactions received via webhook
	webhookInteractionHandler func(c *gin.Context)

	// signalStop enables an explicit stop signal to be sent to the bot
	signalStop chan struct{}

	// signalReady has a value sent on it once Run has loaded the
	// documentation, started its servers and connected to discord
	signalReady chan struct{}

	// A signal is sent on this channel when the
	// [LikoBot.shutdown] function finished
	eventShutdown chan struct{}

	// prevents Run from executing concurrently
	runMu sync.Mutex

	// The time Run was called
	startedAt time.Time

	// getInteractionHandlerFunc returns the InteractionHandler for an
	// incoming interaction. Webhook requests wrap the result, so commands
	// run the same way regardless of how they were received.
	getInteractionHandlerFunc func(
		ctx context.Context,
		i *discordgo.InteractionCreate,
	) InteractionHandler

	messagesHandled     atomic.Int64
	interactionsHandled atomic.Int64
}

// library is the loaded documentation and everything built from it
type library struct {
	dataset   *docs.Dataset
	index     *docs.Index
	searcher  *docs.Searcher
	formatter docs.Formatter
	loadedAt  time.Time
}

// New creates a new bot from config. The returned bot is usable (ex: for
// registering slash commands) even when an error is returned, but Run
// will refuse an invalid config.
func New(config *Config) (*LikoBot, error) {
	var errs []error

	switch config.DatabaseType {
	case dbTypeSQLite, dbTypePostgres:
		//
	default:
		errs = append(
			errs,
			errors.New("invalid database type (must be 'sqlite' or 'postgres')"),
		)
	}

	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}

	b := &LikoBot{
		config:        config,
		signalReady:   make(chan struct{}, 1),
		eventShutdown: make(chan struct{}, 1),
		formatter: docs.Formatter{
			BaseURL: config.DocsBaseURL,
			Command: config.CommandPrefix + DiscordSlashCommandMethod,
		},
	}

	b.logHandler = newLogHandler(b.config.LogLevel)
	b.logger = slog.New(b.logHandler)
	slog.SetDefault(b.logger)

	b.config.Discord.httpClient = b.config.HTTPClient

	disc, err := newDiscord(b.config.Discord)
	if err != nil {
		errs = append(errs, err)
	}

	discordgo.Logger = discordgoLoggerFunc(
		context.Background(),
		newLogHandler(b.config.Discord.DiscordGoLogLevel).WithAttrs(
			[]slog.Attr{slog.String(loggerNameKey, "discordgo")},
		),
	)

	disc.logger = slog.New(newLogHandler(b.config.Discord.LogLevel)).With(
		loggerNameKey,
		"discord",
	)
	b.discord = disc

	if config.API != nil && config.API.Enabled {
		api, e := newAPI(b, config.API)
		errs = append(errs, e)
		b.api = api
	}

	if config.Discord.WebhookServer.Enabled {
		webhookServer, e := newWebhookServer(b, config.Discord.WebhookServer)
		errs = append(errs, e)
		b.discordWebhookServer = webhookServer
	}

	b.getInteractionHandlerFunc = func(
		_ context.Context,
		i *discordgo.InteractionCreate,
	) InteractionHandler {
		return GatewayHandler{
			session:     b.discord.session,
			interaction: i,
			logger: b.logger.With(
				slog.Group("interaction", interactionLogAttrs(*i)...),
			),
		}
	}

	return b, errors.Join(errs...)
}

func (b *LikoBot) ValidateConfig() error {
	return structValidator.Struct(b.config)
}

// RegisterSlashCommands overwrites the bot's slash commands (globally, or
// for the configured guild).
func (b *LikoBot) RegisterSlashCommands(options ...discordgo.RequestOption) (
	[]*discordgo.ApplicationCommand,
	error,
) {
	if b.discord.session == nil {
		session, err := b.discord.newSession()
		if err != nil {
			return nil, err
		}
		b.discord.session = session
	}
	return b.discord.registerCommands(options...)
}

func (b *LikoBot) getLogger(ctx context.Context) (
	context.Context,
	*slog.Logger,
) {
	logger, ok := ContextLogger(ctx)
	if logger == nil || !ok {
		logger = b.logger
		ctx = WithLogger(ctx, logger)
	}
	return ctx, logger
}

// Stop sends a stop signal to a running bot, starting a graceful shutdown.
// It returns false if the bot isn't running, or is already stopping.
func (b *LikoBot) Stop() bool {
	if b.signalStop == nil {
		return false
	}
	select {
	case b.signalStop <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run loads the documentation, starts the API and webhook servers,
// connects to discord, then serves until ctx is cancelled (or [LikoBot.Stop]
// is called), at which point it shuts down gracefully.
func (b *LikoBot) Run(ctx context.Context) error {
	// prevents concurrent runs
	b.runMu.Lock()
	defer b.runMu.Unlock()

	b.signalStop = make(chan struct{}, 1)

	b.startedAt = time.Now()
	logger := b.logger

	if err := b.ValidateConfig(); err != nil {
		logger.Error("invalid config", tint.Err(err))
		return err
	}

	ctx = WithLogger(ctx, logger)

	// handlers for interactions and messages, which shutdown waits on
	runtimeWG := &sync.WaitGroup{}

	b.webhookInteractionHandler = webhookReceiveHandler(ctx, b)

	logger.LogAttrs(ctx, slog.LevelInfo, "starting", slog.Any("config", b.config))
	if b.signalReady == nil {
		b.signalReady = make(chan struct{}, 1)
	}

	// this is the 'runtime' context, which triggers a graceful shutdown
	// when canceled
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-b.signalStop:
			b.logger.Warn("got stop signal, canceling")
			cancel()
		case <-ctx.Done():
			b.logger.Warn("context canceled")
			return
		}
	}()

	startCtx, startCancel := context.WithTimeout(ctx, b.config.StartupTimeout)
	defer startCancel()

	initErr := make(chan error, 1)
	go func() {
		logger.Debug("initializing run...")
		initErr <- b.initRun(startCtx)
	}()

	select {
	case <-startCtx.Done():
		return fmt.Errorf("startup cancelled or timed out")
	case err := <-initErr:
		if err != nil {
			logger.ErrorContext(ctx, "init error", tint.Err(err))
			return err
		}
		logger.InfoContext(ctx, "init complete")
	}

	servers := new(errgroup.Group)
	b.startServers(ctx, cancel, servers)

	if !b.config.Discord.GatewayEnabled && b.discordWebhookServer == nil {
		logger.WarnContext(ctx, "discord gateway and webhook server disabled")
	}

	if discErr := b.initDiscordSession(ctx, runtimeWG); discErr != nil {
		logger.ErrorContext(ctx, "error creating discord session", tint.Err(discErr))
		cancel()
		return errors.Join(discErr, b.shutdown(ctx, runtimeWG), servers.Wait())
	}

	if err := b.discordInit(ctx, logger); err != nil {
		cancel()
		return errors.Join(err, b.shutdown(ctx, runtimeWG), servers.Wait())
	}

	b.signalReady <- struct{}{}
	logger.InfoContext(ctx, "sent ready signal")

	// block until something cancels the main runtime context - generally
	// from an interrupt
	<-ctx.Done()

	shutdownErr := b.shutdown(ctx, runtimeWG)
	return errors.Join(shutdownErr, servers.Wait())
}

// startServers serves the API and webhook server in g. If either stops
// with an error, cancel is called to stop the bot.
func (b *LikoBot) startServers(
	ctx context.Context,
	cancel context.CancelFunc,
	g *errgroup.Group,
) {
	serve := func(name string, fn func(context.Context) error) {
		g.Go(
			func() error {
				httpErr := fn(ctx)
				if httpErr == nil || errors.Is(httpErr, http.ErrServerClosed) {
					return nil
				}
				b.logger.ErrorContext(
					ctx,
					fmt.Sprintf("error serving %s", name),
					tint.Err(httpErr),
				)
				cancel()
				return fmt.Errorf("%s: %w", name, httpErr)
			},
		)
	}

	if b.api != nil {
		serve("api", b.api.Serve)
	}
	if b.discordWebhookServer != nil {
		serve("webhook server", b.discordWebhookServer.Serve)
	}
}

// discordInit opens the discord websocket connection and registers commands,
// if enabled. Failing to register commands isn't fatal.
func (b *LikoBot) discordInit(
	ctx context.Context,
	logger *slog.Logger,
) error {
	if b.config.Discord.GatewayEnabled {
		logger.InfoContext(ctx, "connecting to discord")
		if err := b.discord.session.Open(); err != nil {
			logger.ErrorContext(ctx, "error connecting to discord!", tint.Err(err))
			return fmt.Errorf("error connecting to discord: %w", err)
		}
	}
	if b.config.Discord.RegisterCommands {
		if _, err := b.discord.registerCommands(); err != nil {
			logger.ErrorContext(ctx, "error registering commands", tint.Err(err))
		}
	}
	return nil
}

// shutdown waits for in-flight commands, then stops the servers and
// closes the discord session. If that takes longer than the configured
// shutdown timeout, everything is closed forcefully and an error is
// returned.
func (b *LikoBot) shutdown(
	ctx context.Context,
	runtimeWG *sync.WaitGroup,
) error {
	b.logger.WarnContext(ctx, "shutting down")
	defer func() {
		if b.eventShutdown != nil {
			go func() {
				b.eventShutdown <- struct{}{}
			}()
		}
	}()
	shutdownStart := time.Now()
	shutdownTimeout := b.config.ShutdownTimeout
	if shutdownTimeout.Seconds() == 0 {
		b.logger.Warn("immediate shutdown")
		b.forceClose()
		return fmt.Errorf("request worker did not stop in time")
	}
	shutdownDeadline := shutdownStart.Add(shutdownTimeout)

	announcementTicker := time.NewTicker(shutdownAnnouncementInterval)
	defer announcementTicker.Stop()

	b.logger.InfoContext(
		ctx,
		"exiting!",
		"shutdown_timeout", b.config.ShutdownTimeout,
		"shutdown_started", shutdownStart,
		"shutdown_deadline", shutdownDeadline,
	)

	closeCtx, closeCancel := context.WithDeadline(
		context.Background(),
		shutdownDeadline,
	)
	defer closeCancel()

	// Graceful shutdown - at least until closeCtx is closed
	gracefulShutdownCh := make(chan struct{}, 1)
	go func() {
		runtimeWG.Wait()
		runtimeStopEnd := time.Now()
		b.logger.InfoContext(
			ctx,
			"finished handling in-flight requests",
			"shutdown_started", shutdownStart,
			"runtime_stopped", runtimeStopEnd,
			"runtime_stop_duration", runtimeStopEnd.Sub(shutdownStart),
			"messages_handled", b.messagesHandled.Load(),
			"interactions_handled", b.interactionsHandled.Load(),
		)
		stopWG := &sync.WaitGroup{}

		if b.api != nil {
			stopWG.Add(1)
			go func() {
				defer stopWG.Done()
				b.logger.InfoContext(ctx, "stopping http server")
				_ = b.api.httpServer.Shutdown(closeCtx)
				b.logger.InfoContext(ctx, "http server stopped")
			}()
		}

		if b.discordWebhookServer != nil {
			stopWG.Add(1)
			go func() {
				defer stopWG.Done()
				b.logger.InfoContext(ctx, "stopping webhook http server")
				_ = b.discordWebhookServer.httpServer.Shutdown(closeCtx)
				b.logger.InfoContext(ctx, "webhook http server stopped")
			}()
		}

		if b.discord.session != nil {
			stopWG.Add(1)
			go func() {
				defer stopWG.Done()
				b.logger.InfoContext(ctx, "closing discord session")
				_ = b.discord.session.Close()
				b.logger.InfoContext(ctx, "discord session closed")
				b.removeDiscordHandlers(ctx)
			}()
		}

		// wait on the above, then send a signal that we're done
		go func() {
			b.logger.InfoContext(ctx, "waiting graceful shutdown")
			stopWG.Wait()
			gracefulShutdownCh <- struct{}{}
			b.logger.InfoContext(ctx, "stopped http/discord")
		}()
	}()

	// if we get a signal on gracefulShutdownCh, everything stopped and
	// cleaned up normally.
	for {
		select {
		case <-gracefulShutdownCh:
			closeCancel()
			b.closeLibrary()
			shutdownEnded := time.Now()
			b.logger.InfoContext(
				ctx,
				"shutdown complete",
				"shutdown_ended", shutdownEnded,
				"shutdown_duration", shutdownEnded.Sub(shutdownStart),
			)
			return nil
		case <-announcementTicker.C:
			remaining := time.Until(shutdownDeadline)
			b.logger.Warn(
				fmt.Sprintf(
					"time until hard shutdown: %s",
					remaining.String(),
				),
			)
		case <-closeCtx.Done():
			b.logger.Warn("request worker did not stop in time, forcing close")
			b.forceClose()
			return fmt.Errorf("request worker did not stop in time")
		}
	}
}

// forceClose closes the servers without waiting on open connections
func (b *LikoBot) forceClose() {
	if b.api != nil {
		go func() {
			_ = b.api.httpServer.Close()
		}()
	}
	if b.discordWebhookServer != nil {
		go func() {
			_ = b.discordWebhookServer.httpServer.Close()
		}()
	}
}

func (b *LikoBot) removeDiscordHandlers(ctx context.Context) {
	if len(b.discord.discordgoRemoveHandlerFuncs) == 0 {
		return
	}
	b.logger.InfoContext(
		ctx,
		fmt.Sprintf(
			"removing %d discord handlers",
			len(b.discord.discordgoRemoveHandlerFuncs),
		),
	)
	for _, h := range b.discord.discordgoRemoveHandlerFuncs {
		h()
	}
	b.discord.discordgoRemoveHandlerFuncs = []func(){}
}

// initRun loads the documentation and opens the database
func (b *LikoBot) initRun(startCtx context.Context) error {
	b.logger.Debug("loading documentation...")
	if err := b.loadLibrary(startCtx); err != nil {
		return fmt.Errorf("error loading documentation: %w", err)
	}

	b.logger.Debug("initializing DB...")
	if err := b.initDB(startCtx); err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}
	b.logger.Debug("finished initializing DB")
	return nil
}

// loadLibrary reads the dataset, and builds the alias index and the
// search index from it. The previous library, if any, stays in use until
// the new one is ready.
func (b *LikoBot) loadLibrary(ctx context.Context) error {
	ds, err := docs.LoadDataset(b.config.Dataset)
	if err != nil {
		return err
	}
	idx := docs.BuildIndex(ds)
	searcher, err := docs.NewSearcher(ctx, idx)
	if err != nil {
		return err
	}

	lib := &library{
		dataset:   ds,
		index:     idx,
		searcher:  searcher,
		formatter: b.formatter,
		loadedAt:  time.Now(),
	}
	if old := b.library.Swap(lib); old != nil {
		if e := old.searcher.Close(); e != nil {
			b.logger.WarnContext(ctx, "error closing search index", tint.Err(e))
		}
	}

	b.logger.InfoContext(
		ctx,
		"loaded documentation",
		"dataset", b.config.Dataset,
		"revision", ds.RevisionNumber,
		"peripherals", len(ds.Peripherals),
		"methods", ds.MethodCount(),
		"aliases", idx.Len(),
		"searchable", searcher.Len(),
	)
	return nil
}

func (b *LikoBot) closeLibrary() {
	if lib := b.library.Swap(nil); lib != nil {
		_ = lib.searcher.Close()
	}
}

func (b *LikoBot) initDB(ctx context.Context) error {
	_, logger := b.getLogger(ctx)

	gormLogger := newGORMLogger(
		newLogHandler(b.config.DatabaseLogLevel),
		b.config.DatabaseSlowThreshold,
	)
	db, err := getDB(b.config.DatabaseType, b.config.Database, gormLogger)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}

	b.db = db
	b.writeDB = NewDatabase(db, b.logger, b.config.DatabaseType == dbTypePostgres)

	if b.config.DatabaseType == dbTypeSQLite {
		if err = configureSQLite(ctx, db); err != nil {
			return err
		}
	}

	logger.Debug("migrating database...")
	if err = migrateDB(ctx, db); err != nil {
		logger.Error("error migrating database", tint.Err(err))
		return err
	}
	logger.Debug("finished migrating database")
	return nil
}

func (b *LikoBot) initDiscordSession(ctx context.Context, runtimeWG *sync.WaitGroup) error {
	logger := b.logger.With(loggerNameKey, "discord_session")

	if b.discord.session == nil {
		disc, discErr := b.discord.newSession()
		if discErr != nil {
			return fmt.Errorf("error creating discord session: %w", discErr)
		}
		b.discord.session = disc
	}

	ctx = WithLogger(ctx, logger)

	for _, h := range b.discord.discordgoRemoveHandlerFuncs {
		h()
	}

	b.discord.session.SetIdentify(
		discordgo.Identify{Intents: b.config.Discord.GatewayIntents},
	)

	b.discord.discordgoRemoveHandlerFuncs = []func(){
		b.discord.session.AddHandler(b.discord.handlerConnect()),
		b.discord.session.AddHandler(b.discord.handlerDisconnect()),
		b.discord.session.AddHandler(b.discord.handlerReady()),
		b.discord.session.AddHandler(
			func(
				_ *discordgo.Session,
				i *discordgo.InteractionCreate,
			) {
				handler := b.getInteractionHandlerFunc(ctx, i)
				runtimeWG.Add(1)
				go func() {
					defer runtimeWG.Done()
					b.handleInteraction(ctx, handler)
				}()
			},
		),
		b.discord.session.AddHandler(
			func(
				_ *discordgo.Session,
				m *discordgo.MessageCreate,
			) {
				runtimeWG.Add(1)
				go func() {
					defer runtimeWG.Done()
					b.handleDiscordMessage(ctx, m)
				}()
			},
		),
	}
	return nil
}

// handleInteraction records the interaction, then responds to it.
// Interactions from bots are recorded but not answered.
func (b *LikoBot) handleInteraction(
	ctx context.Context,
	handler InteractionHandler,
) {
	logger := handler.Logger()

	i := handler.GetInteraction()
	discordUser := getDiscordUser(i)
	if discordUser == nil && i.Type != discordgo.InteractionPing {
		logger.ErrorContext(
			ctx,
			"no user found in interaction",
			"interaction", structToSlogValue(i),
		)
		return
	}

	ctx = WithLogger(ctx, logger)
	if discordUser != nil {
		logger.InfoContext(
			ctx,
			"received new interaction",
			slog.Group("user", userLogAttrs(*discordUser)...),
		)
	}
	b.interactionsHandled.Add(1)

	wg := &sync.WaitGroup{}
	defer wg.Wait()

	if b.writeDB != nil {
		interactionLog, err := newInteractionLog(i, discordUser, handler)
		if err != nil {
			logger.ErrorContext(ctx, "error marshaling interaction", tint.Err(err))
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, createErr := b.writeDB.Create(ctx, interactionLog); createErr != nil {
					logger.ErrorContext(ctx, "error logging interaction", tint.Err(createErr))
				}
			}()
		}
	}

	switch i.Type {
	case discordgo.InteractionPing:
		_ = handler.Respond(
			ctx, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponsePong,
			},
		)
	case discordgo.InteractionApplicationCommand:
		if discordUser.Bot {
			logger.WarnContext(ctx, "user is bot, ignoring", "user", discordUser)
			return
		}
		if b.config.RecoverPanic {
			defer func() {
				if rc := recover(); rc != nil {
					b.handleRecover(ctx, rc)
				}
			}()
		}
		rv := b.handleApplicationCommand(ctx, handler, discordUser)
		if rv == nil {
			return
		}
		if err := handler.Respond(ctx, rv); err != nil {
			logger.ErrorContext(ctx, "error responding to command", tint.Err(err))
		}
	default:
		logger.WarnContext(ctx, "unhandled interaction type")
	}
}

// handleDiscordMessage runs prefix commands (ex: ".method clear") from
// chat messages received through the gateway. Messages from bots,
// including this one, are ignored.
func (b *LikoBot) handleDiscordMessage(
	ctx context.Context,
	m *discordgo.MessageCreate,
) {
	ctx, logger := b.getLogger(ctx)

	if m.MentionEveryone {
		logger.DebugContext(ctx, "ignoring message mentioning everyone")
		return
	}

	user := m.Author
	if user == nil && m.Member != nil {
		user = m.Member.User
	}
	if user == nil {
		logger.WarnContext(ctx, "couldn't find user in discord message")
		return
	}

	if user.Bot || user.ID == b.config.Discord.ApplicationID {
		logger.DebugContext(ctx, "ignoring message from bot", "user", user.ID)
		return
	}

	cmd, ok := parsePrefixCommand(m.Content, b.config.CommandPrefix)
	if !ok {
		return
	}

	logger = logger.With(
		slog.Group(
			"message",
			"id", m.ID,
			"channel_id", m.ChannelID,
			"guild_id", m.GuildID,
			"command", cmd.Name,
		),
		slog.Group("user", userLogAttrs(*user)...),
	)
	ctx = WithLogger(ctx, logger)
	b.messagesHandled.Add(1)

	if b.config.RecoverPanic {
		defer func() {
			if rc := recover(); rc != nil {
				b.handleRecover(ctx, rc)
			}
		}()
	}
	b.handleMessageCommand(ctx, m, user, cmd)
}

func (*LikoBot) handleRecover(ctx context.Context, rc any) {
	logger, ok := ContextLogger(ctx)
	if logger == nil || !ok {
		logger = slog.Default()
	}
	stackTrace := string(debug.Stack())
	if nerr, ok := rc.(error); ok {
		logger.ErrorContext(
			ctx,
			"recovered from panic",
			tint.Err(nerr),
			"stack_trace", stackTrace,
		)
		return
	}
	if nerr, ok := rc.(string); ok {
		logger.ErrorContext(
			ctx,
			"recovered from panic",
			tint.Err(errors.New(nerr)),
			"stack_trace", stackTrace,
		)
		return
	}
	logger.ErrorContext(
		ctx,
		"recovered from panic",
		"panic_arg", rc,
		"stack_trace", stackTrace,
	)
}
