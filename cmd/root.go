package cmd

import (
	"context"
	"fmt"
	"github.com/LIKO-12/Discord/likobot"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"
)

var (
	cfg        = likobot.DefaultConfig()
	configFile string
)

// logLevelKeys are the config keys holding a *slog.LevelVar
var logLevelKeys = []string{
	"log_level",
	"database_log_level",
	"api.log_level",
	"discord.log_level",
	"discord.discordgo_log_level",
	"discord.webhook_server.log_level",
}

var rootCmd = &cobra.Command{
	Use:   "likobot [flags]",
	Short: "Discord bot serving the LIKO-12 API documentation",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return decodeConfig(cfg)
	},
	SilenceUsage: true,
}

// decodeConfig unmarshals the current viper settings into c. Slices and
// pointers already set on c are replaced, not merged, so a configured list
// can be shorter than its default.
func decodeConfig(c *likobot.Config) error {
	return viper.Unmarshal(
		c,
		viper.DecodeHook(
			mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				LevelToStringHookFunc(),
			),
		),
		func(dc *mapstructure.DecoderConfig) {
			dc.ZeroFields = true
		},
	)
}

func getLogLevel(level string) (slog.Level, error) {
	switch strings.ToUpper(level) {
	case slog.LevelDebug.String():
		return slog.LevelDebug, nil
	case slog.LevelInfo.String():
		return slog.LevelInfo, nil
	case slog.LevelWarn.String():
		return slog.LevelWarn, nil
	case slog.LevelError.String():
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

// LevelToStringHookFunc converts strings like "INFO" to a *slog.LevelVar.
// A LevelVar target is given the pointer, which mapstructure dereferences.
func LevelToStringHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data any,
	) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}

		// the target is the pointer field itself, or the LevelVar it
		// points to when the pointer is already allocated
		typ := t
		if typ.Kind() == reflect.Ptr {
			typ = typ.Elem()
		}
		if typ != reflect.TypeOf(slog.LevelVar{}) {
			return data, nil
		}
		lvl, err := getLogLevel(data.(string))
		if err != nil {
			return nil, err
		}
		lvlVar := &slog.LevelVar{}
		lvlVar.Set(lvl)
		return lvlVar, nil
	}
}

func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	rootCmd.SetContext(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(
		signals,
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer func() {
		signal.Stop(signals)
		cancel()
	}()
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			//
		}
	}()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setDefaults() {
	viper.SetDefault("dataset", likobot.DefaultDataset)
	viper.SetDefault("docs_base_url", likobot.DefaultDocsBaseURL)
	viper.SetDefault("command_prefix", likobot.DefaultCommandPrefix)

	viper.SetDefault("database", likobot.DefaultDatabase)
	viper.SetDefault("database_type", likobot.DefaultDatabaseType)
	viper.SetDefault(
		"database_slow_threshold",
		likobot.DefaultDatabaseSlowThreshold,
	)
	viper.SetDefault(
		"database_log_level",
		likobot.DefaultDatabaseLogLevel.String(),
	)
	viper.SetDefault("development", false)
	viper.SetDefault("recover_panic", likobot.DefaultRecoverPanic)

	viper.SetDefault("log_level", likobot.DefaultLogLevel.String())
	viper.SetDefault("startup_timeout", likobot.DefaultStartupTimeout)
	viper.SetDefault("shutdown_timeout", likobot.DefaultShutdownTimeout)

	// Discord config
	viper.SetDefault("discord.token", "")
	viper.SetDefault("discord.application_id", "")
	viper.SetDefault("discord.guild_id", "")
	viper.SetDefault(
		"discord.log_level",
		likobot.DefaultDiscordLogLevel.String(),
	)
	viper.SetDefault(
		"discord.discordgo_log_level",
		likobot.DefaultDiscordgoLogLevel.String(),
	)
	viper.SetDefault(
		"discord.gateway_intents",
		int(likobot.DefaultDiscordGatewayIntent),
	)
	viper.SetDefault("discord.gateway_enabled", likobot.DefaultDiscordGatewayEnabled)
	viper.SetDefault("discord.register_commands", likobot.DefaultDiscordRegisterCommand)

	// Discord: Webhook server
	viper.SetDefault("discord.webhook_server.enabled", false)
	viper.SetDefault(
		"discord.webhook_server.listen",
		likobot.DefaultDiscordWebhookServerListen,
	)
	viper.SetDefault("discord.webhook_server.listen_network", "tcp")
	viper.SetDefault("discord.webhook_server.public_key", "")
	viper.SetDefault(
		"discord.webhook_server.read_timeout",
		likobot.DefaultReadTimeout,
	)
	viper.SetDefault(
		"discord.webhook_server.read_header_timeout",
		likobot.DefaultReadHeaderTimeout,
	)
	viper.SetDefault(
		"discord.webhook_server.write_timeout",
		likobot.DefaultWriteTimeout,
	)
	viper.SetDefault(
		"discord.webhook_server.idle_timeout",
		likobot.DefaultIdleTimeout,
	)
	viper.SetDefault(
		"discord.webhook_server.log_level",
		likobot.DefaultDiscordWebhookLogLevel.String(),
	)
	viper.SetDefault(
		"discord.webhook_server.ssl.tls_min_version",
		likobot.DefaultDiscordWebhookServerTLSminVersion,
	)
	viper.SetDefault("discord.webhook_server.ssl.cert_file", "")
	viper.SetDefault("discord.webhook_server.ssl.key_file", "")

	// API config
	viper.SetDefault("api.enabled", likobot.DefaultAPIEnabled)
	viper.SetDefault("api.listen", likobot.DefaultAPIListen)
	viper.SetDefault("api.listen_network", "tcp")
	viper.SetDefault("api.log_level", likobot.DefaultAPILogLevel.String())
	viper.SetDefault("api.read_timeout", likobot.DefaultReadTimeout)
	viper.SetDefault(
		"api.read_header_timeout",
		likobot.DefaultReadHeaderTimeout,
	)
	viper.SetDefault("api.write_timeout", likobot.DefaultWriteTimeout)
	viper.SetDefault("api.idle_timeout", likobot.DefaultIdleTimeout)
	viper.SetDefault("api.ssl.tls_min_version", likobot.DefaultAPITLSMinVersion)
	viper.SetDefault("api.ssl.cert_file", "")
	viper.SetDefault("api.ssl.key_file", "")

	// API: CORS config
	viper.SetDefault(
		"api.cors.allow_headers",
		likobot.DefaultCORSAllowHeaders,
	)
	viper.SetDefault(
		"api.cors.allow_methods",
		likobot.DefaultCORSAllowMethods,
	)
	viper.SetDefault(
		"api.cors.expose_headers",
		likobot.DefaultCORSExposeHeaders,
	)
	viper.SetDefault("api.cors.allow_origins", []string{})
	viper.SetDefault("api.cors.max_age", likobot.DefaultCORSMaxAge)
	viper.SetDefault(
		"api.cors.allow_credentials",
		likobot.DefaultAPICORSAllowCredentials,
	)
}

func initConfig() {
	if configFile == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found")
		}
	} else {
		log.Println("loading env from file", configFile)
		if err := godotenv.Load(configFile); err != nil {
			log.Printf("error loading %s: %v", configFile, err)
		}
	}

	setDefaults()

	envPrefix := os.Getenv(likobot.EnvvarSetEnvPrefix)
	if envPrefix == "" {
		envPrefix = likobot.DefaultEnvPrefix
	}
	viper.SetEnvPrefix(envPrefix)

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	// Convert values to correct types
	for _, key := range []string{
		"api.cors.allow_headers",
		"api.cors.allow_origins",
		"api.cors.allow_methods",
		"api.cors.expose_headers",
	} {
		viper.Set(key, viper.GetStringSlice(key))
	}

	for _, key := range logLevelKeys {
		if _, ok := viper.Get(key).(*slog.LevelVar); ok {
			continue
		}
		logLevelVar, err := levelStringToLevelVar(viper.GetString(key))
		if err != nil {
			log.Fatalf("error parsing %s: %v", key, err)
		}
		viper.Set(key, logLevelVar)
	}
}

func levelStringToLevelVar(lvl string) (*slog.LevelVar, error) {
	level := &slog.LevelVar{}
	err := level.UnmarshalText([]byte(lvl))
	return level, err
}

//nolint:gochecknoinits
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&configFile,
		"config",
		"",
		"Env file to load config from (defaults to .env)",
	)
}
