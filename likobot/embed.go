package likobot

import (
	"fmt"
	"github.com/LIKO-12/Discord/docs"
	"github.com/bwmarrin/discordgo"
	"strings"
)

const (
	embedColor      = 0xFAA21B
	embedAuthor     = "LIKO-12's Docs"
	embedAuthorURL  = "https://github.com/LIKO-12/API-Documentation"
	embedAuthorIcon = "https://github.com/LIKO-12/Extras/raw/master/Icon/icon-square.png"

	// https://discord.com/developers/docs/resources/message#embed-object-embed-limits
	embedTitleLimit       = 256
	embedDescriptionLimit = 4096
	embedFieldNameLimit   = 256
	embedFieldValueLimit  = 1024
	embedFieldsLimit      = 25
	embedFooterLimit      = 2048

	noResultsTitle     = "No results found ⚠"
	noExactMatchTitle  = "No exact match"
	noExactMatchDesc   = "But found those shorter/longer matches:"
	longerMatchesName  = "Longer matches"
	shorterMatchesName = "Shorter matches"
	pongMessage        = "Pong 🏓"
)

// methodEmbed renders a documentation card. note, if set, is appended
// to the card's footer on its own line.
func methodEmbed(card docs.Card, note string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Type:        discordgo.EmbedTypeRich,
		Title:       shortenString(card.Title, embedTitleLimit),
		URL:         card.URL,
		Description: shortenString(card.Description, embedDescriptionLimit),
		Color:       embedColor,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    embedAuthor,
			URL:     embedAuthorURL,
			IconURL: embedAuthorIcon,
		},
	}

	for _, s := range card.Sections {
		if len(embed.Fields) == embedFieldsLimit {
			break
		}
		embed.Fields = append(
			embed.Fields,
			&discordgo.MessageEmbedField{
				Name:  shortenString(s.Name, embedFieldNameLimit),
				Value: embedFieldValue(s.Body),
			},
		)
	}

	footer := card.Footer
	if note != "" {
		if footer != "" {
			footer += "\n"
		}
		footer += note
	}
	if footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: shortenString(footer, embedFooterLimit),
		}
	}
	return embed
}

// embedFieldValue fits s into a field value, closing a code block
// left open by truncation. Discord rejects empty values.
func embedFieldValue(s string) string {
	if strings.TrimSpace(s) == "" {
		return "\u200b"
	}
	v := shortenString(s, embedFieldValueLimit)
	if v == s || strings.Count(v, "```")%2 == 0 {
		return v
	}
	const fence = "\n```"
	v = shortenString(s, embedFieldValueLimit-len(fence))
	if strings.Count(v, "```")%2 == 1 {
		v += fence
	}
	return v
}

// noMatchEmbed describes an unresolved query: either nothing matched, or
// the candidates are listed so the user can refine it.
func noMatchEmbed(res docs.Resolution) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Type: discordgo.EmbedTypeRich}
	if len(res.Longer) == 0 && len(res.Shorter) == 0 {
		embed.Title = noResultsTitle
		return embed
	}
	embed.Title = noExactMatchTitle
	embed.Description = noExactMatchDesc
	if len(res.Longer) > 0 {
		embed.Fields = append(
			embed.Fields,
			&discordgo.MessageEmbedField{
				Name:  longerMatchesName,
				Value: matchList(res.Longer),
			},
		)
	}
	if len(res.Shorter) > 0 {
		embed.Fields = append(
			embed.Fields,
			&discordgo.MessageEmbedField{
				Name:  shorterMatchesName,
				Value: matchList(res.Shorter),
			},
		)
	}
	return embed
}

// matchList formats entries as "- `Name`" lines, dropping whole lines
// that wouldn't fit in a field
func matchList(entries []*docs.IndexEntry) string {
	var b strings.Builder
	for i, e := range entries {
		line := fmt.Sprintf("- `%s`", e.FormattedName)
		if i > 0 {
			line = "\n" + line
		}
		if b.Len()+len(line) > embedFieldValueLimit {
			break
		}
		b.WriteString(line)
	}
	return b.String()
}

// resolutionEmbed is the reply to a method lookup
func resolutionEmbed(
	f docs.Formatter,
	res docs.Resolution,
	usage int,
) *discordgo.MessageEmbed {
	if !res.Found() {
		return noMatchEmbed(res)
	}
	return methodEmbed(f.Format(res.Entry, usage), res.Note())
}

// usageEmbed explains the method command, for when it's sent without a name
func usageEmbed(prefix string, u *discordgo.User) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Type:  discordgo.EmbedTypeRich,
		Title: "Usage:",
		Description: fmt.Sprintf(
			"```css\n%s%s <method_name> [usage_id]\n```",
			prefix, DiscordSlashCommandMethod,
		),
	}
	if u != nil {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "@" + u.String()}
	}
	return embed
}

// searchEmbed lists search hits, one linked method per line
func searchEmbed(
	f docs.Formatter,
	query string,
	hits []docs.SearchHit,
) *discordgo.MessageEmbed {
	if len(hits) == 0 {
		return &discordgo.MessageEmbed{
			Type:  discordgo.EmbedTypeRich,
			Title: noResultsTitle,
		}
	}

	var b strings.Builder
	for _, h := range hits {
		line := fmt.Sprintf("- [`%s`](%s)", h.Entry.FormattedName, f.URL(h.Entry))
		if m := h.Entry.Method; m != nil && m.ShortDescription != "" {
			line += " " + m.ShortDescription
		}
		line = shortenString(line, embedFieldValueLimit)
		if b.Len() > 0 {
			line = "\n" + line
		}
		if b.Len()+len(line) > embedDescriptionLimit {
			break
		}
		b.WriteString(line)
	}

	return &discordgo.MessageEmbed{
		Type:        discordgo.EmbedTypeRich,
		Title:       shortenString(fmt.Sprintf("Search results for '%s'", query), embedTitleLimit),
		Description: b.String(),
		Color:       embedColor,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    embedAuthor,
			URL:     embedAuthorURL,
			IconURL: embedAuthorIcon,
		},
	}
}
