package cmd

import (
	"errors"
	"fmt"
	"github.com/LIKO-12/Discord/docs"
	"github.com/LIKO-12/Discord/likobot"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"strconv"
	"strings"
)

const autoStyle = "auto"

var (
	lookupStyle string
	lookupWidth int
	lookupRaw   bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <method_name> [usage_id]",
	Short: "Prints a method's documentation card to the terminal",
	Long: "Resolves method_name the same way the method command does, " +
		"and renders the resulting card as markdown.",
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		usage := docs.UsageUnselected
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid usage_id %q: %w", args[1], err)
			}
			usage = n
		}

		_, idx, err := loadIndex()
		if err != nil {
			return err
		}

		res := idx.Resolve(args[0])
		var md string
		switch {
		case res.Found():
			md = formatter().Format(res.Entry, usage).Markdown()
			if note := res.Note(); note != "" {
				md += "\n_" + note + "_\n"
			}
		case len(res.Longer) == 0 && len(res.Shorter) == 0:
			return fmt.Errorf("no results found for '%s'", res.Query)
		default:
			md = candidatesMarkdown(res)
		}

		if lookupRaw {
			_, err = fmt.Fprint(cmd.OutOrStdout(), md)
			return err
		}
		out, err := renderMarkdown(md, lookupStyle, lookupWidth)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	},
}

// loadIndex reads the configured dataset and builds its alias index
func loadIndex() (*docs.Dataset, *docs.Index, error) {
	if cfg.Dataset == "" {
		return nil, nil, errors.New("no dataset configured")
	}
	ds, err := docs.LoadDataset(cfg.Dataset)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading documentation: %w", err)
	}
	return ds, docs.BuildIndex(ds), nil
}

func formatter() docs.Formatter {
	return docs.Formatter{
		BaseURL: cfg.DocsBaseURL,
		Command: cfg.CommandPrefix + likobot.DiscordSlashCommandMethod,
	}
}

// candidatesMarkdown lists the methods an ambiguous query could refer to
func candidatesMarkdown(res docs.Resolution) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# No exact match for '%s'\n\n", res.Query)
	list := func(title string, entries []*docs.IndexEntry) {
		if len(entries) == 0 {
			return
		}
		fmt.Fprintf(&b, "## %s\n\n", title)
		for _, e := range entries {
			fmt.Fprintf(&b, "- `%s`\n", e.FormattedName)
		}
		b.WriteString("\n")
	}
	list("Longer matches", res.Longer)
	list("Shorter matches", res.Shorter)
	return b.String()
}

func renderMarkdown(md string, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == autoStyle {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

//nolint:gochecknoinits
func init() {
	lookupCmd.Flags().StringVar(
		&lookupStyle,
		"style",
		autoStyle,
		"glamour style to render with (auto, dark, light, notty, ...)",
	)
	lookupCmd.Flags().IntVar(&lookupWidth, "width", 100, "Word wrap width")
	lookupCmd.Flags().BoolVar(&lookupRaw, "raw", false, "Print markdown without rendering it")
	rootCmd.AddCommand(lookupCmd)
}
