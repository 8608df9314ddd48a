// Package likobot implements a Discord bot that answers questions about the
// LIKO-12 API documentation.
//
// LikoBot loads the documentation with the docs package, then serves method
// lookups from three places: prefix commands in chat (ex: ".method clear 2"),
// slash commands received via the gateway or the webhook server, and a small
// read-only HTTP API.
//
// Key components of the package include:
//
//   - LikoBot: The main struct that owns the documentation, the database
//     and the discord session, and runs everything.
//   - Discord: Handles the discord session and slash command registration.
//   - DiscordWebhookServer: Receives interactions over HTTP, verifying
//     their Ed25519 signatures.
//   - API: Serves lookups, search and lookup history as JSON.
//
// The bot supports these commands:
//
//   - method <method_name> [usage_id]: Shows a method's documentation.
//   - search <text>: Lists methods matching a full-text search.
//   - ping: Replies with "Pong".
//
// Every interaction and method lookup is recorded in the database
// (sqlite or postgres).
package likobot
