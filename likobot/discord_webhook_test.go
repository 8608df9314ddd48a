package likobot

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestVerifyRequest(t *testing.T) {
	pubkey, privkey := generateDiscordKey(t)
	key, err := hex.DecodeString(pubkey)
	require.NoError(t, err)
	publicKey := ed25519.PublicKey(key)

	body := []byte(`{"type":1}`)

	t.Run(
		"valid", func(t *testing.T) {
			req := newSignedRequest(t, privkey, body)
			assert.True(t, verifyRequest(req, publicKey))

			// body can still be read by the handler
			restored, readErr := io.ReadAll(req.Body)
			require.NoError(t, readErr)
			assert.Equal(t, body, restored)
		},
	)

	t.Run(
		"wrong key", func(t *testing.T) {
			_, otherKey := generateDiscordKey(t)
			req := newSignedRequest(t, otherKey, body)
			assert.False(t, verifyRequest(req, publicKey))
		},
	)

	t.Run(
		"modified body", func(t *testing.T) {
			req := newSignedRequest(t, privkey, body)
			req.Body = io.NopCloser(bytes.NewReader([]byte(`{"type":2}`)))
			assert.False(t, verifyRequest(req, publicKey))
		},
	)

	t.Run(
		"missing signature", func(t *testing.T) {
			req := newSignedRequest(t, privkey, body)
			req.Header.Del(headerSignature)
			assert.False(t, verifyRequest(req, publicKey))
		},
	)

	t.Run(
		"missing timestamp", func(t *testing.T) {
			req := newSignedRequest(t, privkey, body)
			req.Header.Del(headerTimestamp)
			assert.False(t, verifyRequest(req, publicKey))
		},
	)

	t.Run(
		"signature not hex", func(t *testing.T) {
			req := newSignedRequest(t, privkey, body)
			req.Header.Set(headerSignature, "zz")
			assert.False(t, verifyRequest(req, publicKey))
		},
	)

	t.Run(
		"short signature", func(t *testing.T) {
			req := newSignedRequest(t, privkey, body)
			req.Header.Set(headerSignature, "abcd")
			assert.False(t, verifyRequest(req, publicKey))
		},
	)

	t.Run(
		"no public key", func(t *testing.T) {
			req := newSignedRequest(t, privkey, body)
			assert.False(t, verifyRequest(req, nil))
		},
	)
}

func TestWebhook_Ping(t *testing.T) {
	bot, privkey := newWebhookLikoBot(t)

	body := []byte(`{"id":"ping_interaction","type":1,"application_id":"app_id"}`)
	w := serveWebhook(bot, newSignedRequest(t, privkey, body))
	require.Equal(t, http.StatusOK, w.Code)

	var resp discordgo.InteractionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, discordgo.InteractionResponsePong, resp.Type)
	assert.NotEmpty(t, w.Header().Get(xRequestIDHeader))

	var interactionLog InteractionLog
	require.NoError(t, bot.db.Last(&interactionLog).Error)
	assert.Equal(t, "ping_interaction", interactionLog.InteractionID)
	assert.Equal(t, discordInteractionReceiveMethodWebhook, interactionLog.Method)
}

func TestWebhook_MethodCommand(t *testing.T) {
	bot, privkey := newWebhookLikoBot(t)

	u := newDiscordUser(t)
	i := newMethodInteraction(t, u, "gpu.clear", -1)
	body, err := json.Marshal(i)
	require.NoError(t, err)

	w := serveWebhook(bot, newSignedRequest(t, privkey, body))
	require.Equal(t, http.StatusOK, w.Code)

	var resp discordgo.InteractionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, resp.Type)
	require.NotNil(t, resp.Data)
	require.Len(t, resp.Data.Embeds, 1)
	assert.Equal(t, "GPU.clear", resp.Data.Embeds[0].Title)

	var lookup MethodLookup
	require.NoError(t, bot.db.Last(&lookup).Error)
	assert.Equal(t, LookupSource(discordInteractionReceiveMethodWebhook), lookup.Source)
	assert.Equal(t, "exact", lookup.Kind)
	assert.Equal(t, u.ID, lookup.UserID)
	assert.Equal(t, i.ID, lookup.InteractionID)
}

func TestWebhook_InvalidSignature(t *testing.T) {
	bot, _ := newWebhookLikoBot(t)
	_, otherKey := generateDiscordKey(t)

	body := []byte(`{"id":"ping_interaction","type":1}`)
	w := serveWebhook(bot, newSignedRequest(t, otherKey, body))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var count int64
	require.NoError(t, bot.db.Model(&InteractionLog{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestWebhook_InvalidBody(t *testing.T) {
	bot, privkey := newWebhookLikoBot(t)

	w := serveWebhook(bot, newSignedRequest(t, privkey, []byte(`{"type":`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhook_BotUserGetsNoResponse(t *testing.T) {
	bot, privkey := newWebhookLikoBot(t)

	u := newDiscordUser(t)
	u.Bot = true
	body, err := json.Marshal(newMethodInteraction(t, u, "clear", -1))
	require.NoError(t, err)

	w := serveWebhook(bot, newSignedRequest(t, privkey, body))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// newWebhookLikoBot returns a running bot with the webhook server enabled,
// and the private key to sign requests with
func newWebhookLikoBot(t testing.TB) (*LikoBot, ed25519.PrivateKey) {
	t.Helper()
	cfg := DefaultTestConfig(t)
	cfg.Discord.GatewayEnabled = false
	cfg.Discord.WebhookServer.Enabled = true

	pubkey, privkey := generateDiscordKey(t)
	cfg.Discord.WebhookServer.PublicKey = pubkey

	bot, _ := newLikoBotWithConfig(t, cfg)
	require.NotNil(t, bot.discordWebhookServer)
	return bot, privkey
}

func serveWebhook(bot *LikoBot, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	bot.discordWebhookServer.engine.ServeHTTP(w, req)
	return w
}

// newSignedRequest creates a webhook request with body, signed the way
// discord signs them
func newSignedRequest(t testing.TB, privkey ed25519.PrivateKey, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(
		http.MethodPost,
		apiDiscordInteractions,
		bytes.NewReader(body),
	)
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	signature := ed25519.Sign(privkey, append([]byte(timestamp), body...))

	req.Header.Set(headerTimestamp, timestamp)
	req.Header.Set(headerSignature, hex.EncodeToString(signature))
	req.Header.Set("Content-Type", "application/json")
	return req
}
