package likobot

import (
	"bytes"
	"context"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"log/slog"
	"testing"
	"time"
	"unicode/utf8"
)

func TestShortenString(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		limit    int
		expected string
	}{
		{
			name:     "String shorter than limit",
			input:    "Short string",
			limit:    20,
			expected: "Short string",
		},
		{
			name:     "String equal to limit",
			input:    "Exactly twenty chars",
			limit:    20,
			expected: "Exactly twenty chars",
		},
		{
			name:     "Cut with ellipsis",
			input:    "hello world",
			limit:    6,
			expected: "hello…",
		},
		{
			name:     "Trailing space trimmed before ellipsis",
			input:    "hello world",
			limit:    7,
			expected: "hello…",
		},
		{
			name:     "Multibyte runes",
			input:    "⚠⚠⚠⚠⚠",
			limit:    3,
			expected: "⚠⚠…",
		},
		{
			name:     "Limit of one",
			input:    "hello",
			limit:    1,
			expected: "h",
		},
	}

	for _, tc := range testCases {
		t.Run(
			tc.name, func(t *testing.T) {
				result := shortenString(tc.input, tc.limit)
				assert.Equal(t, tc.expected, result)
				assert.LessOrEqual(t, utf8.RuneCountInString(result), tc.limit)
			},
		)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "", truncate("abc", 0))
}

func TestGenerateRandomHexString(t *testing.T) {
	length := 32
	s, err := generateRandomHexString(length)
	require.NoError(t, err)
	assert.Len(t, s, length)

	other, err := generateRandomHexString(length)
	require.NoError(t, err)
	assert.NotEqual(t, s, other)
}

func TestLoggerCtx(t *testing.T) {
	logger := slog.Default()
	ctx := context.Background()

	foundLogger, ok := ContextLogger(ctx)
	assert.Nil(t, foundLogger)
	assert.False(t, ok)

	logCtx := WithLogger(ctx, logger)
	foundLogger, ok = ContextLogger(logCtx)
	assert.True(t, ok)
	assert.NotNil(t, foundLogger)
	assert.Equal(t, logger, foundLogger)
}

func TestGetDiscordUser(t *testing.T) {
	u := newDiscordUser(t)

	direct := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{User: u},
	}
	assert.Equal(t, u, getDiscordUser(direct))

	member := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{Member: &discordgo.Member{User: u}},
	}
	assert.Equal(t, u, getDiscordUser(member))

	none := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}}
	assert.Nil(t, getDiscordUser(none))
}

func TestGetInteractionOptions(t *testing.T) {
	i := newMethodInteraction(t, newDiscordUser(t), "clear", 2)
	optionMap := discordInteractionOptions(i)

	nameOpt, ok := optionMap[methodCommandNameOption]
	require.True(t, ok)
	assert.Equal(t, "clear", nameOpt.StringValue())

	usageOpt, ok := optionMap[methodCommandUsageOption]
	require.True(t, ok)
	assert.Equal(t, int64(2), usageOpt.IntValue())
}

func TestInteractionLogAttrs(t *testing.T) {
	i := discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:      "1",
			Type:    discordgo.InteractionApplicationCommand,
			GuildID: "guild",
		},
	}
	attrs := interactionLogAttrs(i)
	assert.Contains(t, attrs, "guild_id")
	assert.Contains(t, attrs, "guild")
	assert.NotContains(t, attrs, "channel_id")
}

func TestStructToSlogValue(t *testing.T) {
	type inner struct {
		Timeout time.Duration `json:"timeout"`
	}
	type sample struct {
		Name     string `json:"name"`
		Password string `json:"password" log:"[redacted]"`
		Empty    string `json:"empty"`
		Skipped  string `json:"-"`
		Inner    *inner `json:"inner"`
		hidden   string
	}
	v := structToSlogValue(
		sample{
			Name:     "liko",
			Password: "hunter2",
			Skipped:  "nope",
			Inner:    &inner{Timeout: time.Second},
			hidden:   "x",
		},
	)
	require.Equal(t, slog.KindGroup, v.Kind())

	attrs := map[string]slog.Value{}
	for _, a := range v.Group() {
		attrs[a.Key] = a.Value
	}
	assert.Equal(t, "liko", attrs["name"].String())
	assert.Equal(t, "[redacted]", attrs["password"].String())
	assert.NotContains(t, attrs, "empty")
	assert.NotContains(t, attrs, "-")
	assert.NotContains(t, attrs, "Skipped")
	assert.NotContains(t, attrs, "hidden")
	require.Contains(t, attrs, "inner")
	assert.Equal(t, "1s", attrs["inner"].Group()[0].Value.String())
}

func TestDiscordgoLoggerFunc(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logFunc := discordgoLoggerFunc(context.Background(), handler)

	logFunc(discordgo.LogError, 0, "error %s\n", "happened")
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "error happened")

	buf.Reset()
	logFunc(999, 0, "unknown")
	assert.Contains(t, buf.String(), "level=INFO")
}

func TestTLSConfig_NoCert(t *testing.T) {
	cfg, err := tlsConfig(SSLConfig{})
	require.NoError(t, err)
	assert.Nil(t, cfg)

	_, err = tlsConfig(SSLConfig{CertFile: "missing.pem", KeyFile: "missing.key"})
	assert.Error(t, err)
}
