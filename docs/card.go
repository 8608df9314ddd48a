package docs

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultBaseURL is where the rendered documentation is hosted.
	DefaultBaseURL = "https://liko-12.github.io/WIP/docs/"
	// DefaultCommand is the command named in footer hints.
	DefaultCommand = ".method"
)

// Usage selector values accepted by [Formatter.Format]. Any value >= 1
// selects that usage variant.
const (
	UsageUnselected = -1
	UsageAll        = 0
)

// Section names, in the order they can appear on a card.
const (
	SectionNotes      = "Notes:"
	SectionArguments  = "Arguments:"
	SectionReturns    = "Returns:"
	SectionUsageExtra = "Usage extra information:"
	SectionExtra      = "Extra information:"
)

// Section is a named block of markdown text on a [Card].
type Section struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

// Card is a rendered documentation entry, independent of where it is
// displayed. Text is Discord-flavored markdown.
type Card struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Sections    []Section `json:"sections,omitempty"`
	Footer      string    `json:"footer,omitempty"`
}

// Formatter renders index entries as cards. The zero value uses
// [DefaultBaseURL] and [DefaultCommand].
type Formatter struct {
	BaseURL string
	Command string
}

func (f Formatter) baseURL() string {
	if f.BaseURL == "" {
		return DefaultBaseURL
	}
	return f.BaseURL
}

func (f Formatter) command() string {
	if f.Command == "" {
		return DefaultCommand
	}
	return f.Command
}

// URL returns the documentation page of the entry's method.
func (f Formatter) URL(e *IndexEntry) string {
	var page string
	if e.Object != "" {
		page = fmt.Sprintf(
			"peripherals_%s_%s#%s%s",
			e.Peripheral, e.Object, e.Object, e.Name,
		)
	} else {
		page = fmt.Sprintf(
			"peripherals_%s#%s%s",
			e.Peripheral, e.Peripheral, e.Name,
		)
	}
	return f.baseURL() + strings.ToLower(page)
}

// Format renders e. usage is [UsageUnselected], [UsageAll], or the
// 1-based number of a usage variant. Unknown variant numbers behave like
// UsageUnselected.
func (f Formatter) Format(e *IndexEntry, usage int) Card {
	m := e.Method
	if m == nil {
		m = &Method{Peripheral: e.Peripheral, Object: e.Object, Name: e.Name}
	}
	card := Card{
		Title: e.FormattedName,
		URL:   f.URL(e),
	}
	if card.Title == "" {
		card.Title = m.FormattedName()
	}

	description := m.ShortDescription
	if m.LongDescription != "" {
		description += "\n" + m.LongDescription
	}

	if len(m.Notes) > 0 {
		card.add(SectionNotes, formatNotes(m.Notes))
	}

	switch sig := m.Signature.(type) {
	case MultiUsage:
		if u, ok := sig.Usage(usage); ok {
			description += fmt.Sprintf("\n\n**%d. %s:**", usage, u.Name)
			if u.ShortDescription != "" {
				description += "\n" + u.ShortDescription
			}
			if u.LongDescription != "" {
				description += "\n" + u.LongDescription
			}
			description += "\n" + codeBlock(exampleCode(m, u.Arguments, u.Returns))
			if len(u.Notes) > 0 {
				card.add(SectionNotes, formatNotes(u.Notes))
			}
			f.addDetails(&card, u.Arguments, u.Returns, u.Extra)
			break
		}

		for i, u := range sig.Usages {
			body := u.ShortDescription + "\n" + codeBlock(exampleCode(m, u.Arguments, u.Returns))
			if len(u.Notes) > 0 {
				body += "\n" + formatNotes(u.Notes)
			}
			card.add(fmt.Sprintf("%d. %s", i+1, u.Name), trimLeadingNewlines(body))
			if usage == UsageAll {
				f.addDetails(&card, u.Arguments, u.Returns, u.Extra)
			}
		}
		if usage != UsageAll {
			card.Footer = fmt.Sprintf(
				"Use '%[1]s %[2]s [number]' to view a specific usage's documentation\n"+
					"Use '%[1]s %[2]s 0' to view them all",
				f.command(), card.Title,
			)
		}
	case SingleUsage:
		description += "\n" + codeBlock(exampleCode(m, sig.Arguments, sig.Returns))
		f.addDetails(&card, sig.Arguments, sig.Returns, "")
	default:
		description += "\n" + codeBlock(exampleCode(m, nil, nil))
	}

	card.Description = trimLeadingNewlines(description)

	if m.Extra != "" {
		card.add(SectionExtra, m.Extra)
	}
	return card
}

func (c *Card) add(name, body string) {
	c.Sections = append(c.Sections, Section{Name: name, Body: body})
}

func (f Formatter) addDetails(c *Card, args []Argument, rets []ReturnValue, extra string) {
	if len(args) > 0 {
		c.add(SectionArguments, f.formatArguments(args))
	}
	if len(rets) > 0 {
		c.add(SectionReturns, f.formatReturns(rets))
	}
	if extra != "" {
		c.add(SectionUsageExtra, extra)
	}
}

// Section returns the first section named name.
func (c Card) Section(name string) (Section, bool) {
	for _, s := range c.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// Markdown renders the card as a single markdown document.
func (c Card) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# [%s](%s)\n\n", c.Title, c.URL)
	if c.Description != "" {
		b.WriteString(c.Description)
		b.WriteString("\n\n")
	}
	for _, s := range c.Sections {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", s.Name, s.Body)
	}
	if c.Footer != "" {
		for _, line := range strings.Split(c.Footer, "\n") {
			fmt.Fprintf(&b, "_%s_\n\n", line)
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func codeBlock(code string) string {
	return "```lua\n" + code + "\n```"
}

func trimLeadingNewlines(s string) string {
	return strings.TrimLeft(s, "\n")
}

// formatNotes renders notes as quoted bullets. Multi-line notes stay
// inside the quote.
func formatNotes(notes []string) string {
	lines := make([]string, len(notes))
	for i, n := range notes {
		lines[i] = "• " + strings.ReplaceAll(n, "\n", "\n> ")
	}
	return "> " + strings.Join(lines, "\n> ")
}

// exampleCode builds a call line like `a, b = Parent:name(x, [y])`.
func exampleCode(m *Method, args []Argument, rets []ReturnValue) string {
	var b strings.Builder
	if len(rets) > 0 {
		names := make([]string, len(rets))
		for i, r := range rets {
			names[i] = r.Name
		}
		b.WriteString(strings.Join(names, ", "))
		b.WriteString(" = ")
	}
	if parent := m.Parent(); parent != "" {
		b.WriteString(parent)
		b.WriteString(m.Separator())
	}
	b.WriteString(m.Name)
	b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		switch a := a.(type) {
		case LiteralArgument:
			b.WriteString(a.Value)
		case NamedArgument:
			if a.Optional() {
				b.WriteString("[" + a.Name + "]")
			} else {
				b.WriteString(a.Name)
			}
		}
	}
	b.WriteByte(')')
	return b.String()
}

func (f Formatter) formatArguments(args []Argument) string {
	lines := make([]string, 0, len(args))
	for _, a := range args {
		lines = append(lines, "• "+f.formatArgument(a))
	}
	return strings.Join(lines, "\n")
}

func (f Formatter) formatArgument(arg Argument) string {
	var s string
	var description string
	switch a := arg.(type) {
	case LiteralArgument:
		s = fmt.Sprintf("`%s` **(**%s**)**", a.Value, f.formatType(a.Type))
		description = a.Description
	case NamedArgument:
		s = fmt.Sprintf("**%s (**%s**)**", a.Name, f.formatType(a.Type))
		switch a.Default {
		case "":
		case "nil":
			s += " **(**Optional**)**"
		default:
			s += fmt.Sprintf(" **(**Default `%s`**)**", a.Default)
		}
		description = a.Description
	}
	if description != "" {
		s += ": " + description
	}
	return s
}

func (f Formatter) formatReturns(rets []ReturnValue) string {
	lines := make([]string, 0, len(rets))
	for _, r := range rets {
		lines = append(lines, "• "+f.formatReturn(r))
	}
	return strings.Join(lines, "\n")
}

func (f Formatter) formatReturn(r ReturnValue) string {
	var s string
	if isLiteralValue(r.Name) {
		s = "`" + r.Name + "`"
	} else {
		s = "**" + r.Name + "**"
	}
	s += fmt.Sprintf(" **(**%s**)**", f.formatType(r.Type))
	if r.Description != "" {
		s += ": " + r.Description
	}
	return s
}

// isLiteralValue reports whether s is a Lua constant rather than an
// identifier.
func isLiteralValue(s string) bool {
	switch s {
	case "nil", "true", "false":
		return true
	}
	if strings.HasPrefix(s, `"`) || strings.HasPrefix(s, "'") {
		return true
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func (f Formatter) formatType(t LuaType) string {
	parts := make([]string, 0, len(t))
	for _, ref := range t {
		if !ref.IsReference() {
			parts = append(parts, string(ref.Primitive))
			continue
		}
		parts = append(
			parts,
			fmt.Sprintf(
				"[%s/%s](%speripherals_%s_%s)",
				ref.Peripheral, ref.Object, f.baseURL(),
				strings.ToLower(ref.Peripheral), strings.ToLower(ref.Object),
			),
		)
	}
	return strings.Join(parts, ", ")
}
