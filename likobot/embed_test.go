package likobot

import (
	"fmt"
	"github.com/LIKO-12/Discord/docs"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestMethodEmbed(t *testing.T) {
	card := docs.Card{
		Title:       "GPU.clear",
		URL:         "https://liko-12.github.io/WIP/docs/peripherals_gpu#gpuclear",
		Description: "Clears the whole screen.",
		Sections: []docs.Section{
			{Name: docs.SectionArguments, Body: "- **colorId** (number)"},
			{Name: docs.SectionExtra, Body: ""},
		},
	}

	embed := methodEmbed(card, "")
	assert.Equal(t, card.Title, embed.Title)
	assert.Equal(t, card.URL, embed.URL)
	assert.Equal(t, card.Description, embed.Description)
	assert.Equal(t, embedColor, embed.Color)
	require.NotNil(t, embed.Author)
	assert.Equal(t, embedAuthor, embed.Author.Name)
	assert.Nil(t, embed.Footer)

	require.Len(t, embed.Fields, 2)
	assert.Equal(t, docs.SectionArguments, embed.Fields[0].Name)
	assert.Equal(t, "\u200b", embed.Fields[1].Value)
}

func TestMethodEmbed_FooterNote(t *testing.T) {
	card := docs.Card{Title: "GPU.print", Footer: "Use '.method GPU.print 0' to view them all"}
	note := "Didn't find an exact match for 'prin' but instead found a longer match."

	embed := methodEmbed(card, note)
	require.NotNil(t, embed.Footer)
	assert.Equal(t, card.Footer+"\n"+note, embed.Footer.Text)

	embed = methodEmbed(docs.Card{Title: "CPU.sleep"}, note)
	require.NotNil(t, embed.Footer)
	assert.Equal(t, note, embed.Footer.Text)
}

func TestMethodEmbed_Limits(t *testing.T) {
	card := docs.Card{
		Title:       strings.Repeat("t", embedTitleLimit+10),
		Description: strings.Repeat("d", embedDescriptionLimit+10),
		Footer:      strings.Repeat("f", embedFooterLimit+10),
	}
	for i := 0; i < embedFieldsLimit+5; i++ {
		card.Sections = append(
			card.Sections,
			docs.Section{Name: fmt.Sprintf("%d.", i), Body: "body"},
		)
	}

	embed := methodEmbed(card, "")
	assert.Equal(t, embedTitleLimit, utf8.RuneCountInString(embed.Title))
	assert.Equal(t, embedDescriptionLimit, utf8.RuneCountInString(embed.Description))
	assert.Equal(t, embedFooterLimit, utf8.RuneCountInString(embed.Footer.Text))
	assert.Len(t, embed.Fields, embedFieldsLimit)
}

func TestEmbedFieldValue(t *testing.T) {
	t.Run(
		"short", func(t *testing.T) {
			assert.Equal(t, "abc", embedFieldValue("abc"))
		},
	)
	t.Run(
		"blank", func(t *testing.T) {
			assert.Equal(t, "\u200b", embedFieldValue("  \n"))
		},
	)
	t.Run(
		"closes truncated code block", func(t *testing.T) {
			s := "```lua\n" + strings.Repeat("x", embedFieldValueLimit*2) + "\n```"
			v := embedFieldValue(s)
			assert.LessOrEqual(t, utf8.RuneCountInString(v), embedFieldValueLimit)
			assert.Equal(t, 0, strings.Count(v, "```")%2)
			assert.True(t, strings.HasSuffix(v, "```"))
		},
	)
	t.Run(
		"balanced after cut", func(t *testing.T) {
			s := "```lua\nx\n```\n" + strings.Repeat("y", embedFieldValueLimit*2)
			v := embedFieldValue(s)
			assert.LessOrEqual(t, utf8.RuneCountInString(v), embedFieldValueLimit)
			assert.Equal(t, 2, strings.Count(v, "```"))
		},
	)
}

func TestNoMatchEmbed(t *testing.T) {
	t.Run(
		"no results", func(t *testing.T) {
			embed := noMatchEmbed(docs.Resolution{Query: "xyz"})
			assert.Equal(t, noResultsTitle, embed.Title)
			assert.Empty(t, embed.Fields)
			assert.Zero(t, embed.Color)
		},
	)

	t.Run(
		"candidates", func(t *testing.T) {
			res := docs.Resolution{
				Query: "s",
				Longer: []*docs.IndexEntry{
					{FormattedName: "CPU.shutdown"},
					{FormattedName: "CPU.sleep"},
				},
				Shorter: []*docs.IndexEntry{
					{FormattedName: "GPU.clear"},
				},
			}
			embed := noMatchEmbed(res)
			assert.Equal(t, noExactMatchTitle, embed.Title)
			assert.Equal(t, noExactMatchDesc, embed.Description)
			require.Len(t, embed.Fields, 2)
			assert.Equal(t, longerMatchesName, embed.Fields[0].Name)
			assert.Equal(t, "- `CPU.shutdown`\n- `CPU.sleep`", embed.Fields[0].Value)
			assert.Equal(t, shorterMatchesName, embed.Fields[1].Name)
			assert.Equal(t, "- `GPU.clear`", embed.Fields[1].Value)
		},
	)

	t.Run(
		"only shorter", func(t *testing.T) {
			res := docs.Resolution{
				Shorter: []*docs.IndexEntry{{FormattedName: "a"}, {FormattedName: "b"}},
			}
			embed := noMatchEmbed(res)
			require.Len(t, embed.Fields, 1)
			assert.Equal(t, shorterMatchesName, embed.Fields[0].Name)
		},
	)
}

func TestMatchList_Limit(t *testing.T) {
	var entries []*docs.IndexEntry
	for i := 0; i < 200; i++ {
		entries = append(entries, &docs.IndexEntry{FormattedName: fmt.Sprintf("GPU.method%03d", i)})
	}
	v := matchList(entries)
	assert.LessOrEqual(t, len(v), embedFieldValueLimit)
	assert.True(t, strings.HasPrefix(v, "- `GPU.method000`"))
	assert.True(t, strings.HasSuffix(v, "`"))
}

func TestUsageEmbed(t *testing.T) {
	u := &discordgo.User{ID: "1", Username: "liko", Discriminator: "0"}
	embed := usageEmbed(".", u)
	assert.Equal(t, "Usage:", embed.Title)
	assert.Equal(t, "```css\n.method <method_name> [usage_id]\n```", embed.Description)
	require.NotNil(t, embed.Footer)
	assert.Equal(t, "@liko", embed.Footer.Text)

	embed = usageEmbed("!", nil)
	assert.Contains(t, embed.Description, "!method")
	assert.Nil(t, embed.Footer)
}

func TestSearchEmbed(t *testing.T) {
	f := docs.Formatter{}
	empty := searchEmbed(f, "nothing", nil)
	assert.Equal(t, noResultsTitle, empty.Title)

	entry := &docs.IndexEntry{
		Peripheral:    "CPU",
		Name:          "sleep",
		FormattedName: "CPU.sleep",
		Method: &docs.Method{
			Peripheral:       "CPU",
			Name:             "sleep",
			ShortDescription: "Sleeps for a while.",
		},
	}
	embed := searchEmbed(f, "sleep", []docs.SearchHit{{Entry: entry, Score: 1}})
	assert.Equal(t, "Search results for 'sleep'", embed.Title)
	assert.Equal(
		t,
		fmt.Sprintf("- [`CPU.sleep`](%s) Sleeps for a while.", f.URL(entry)),
		embed.Description,
	)
	assert.Equal(t, embedColor, embed.Color)
}
