package cmd

import (
	"fmt"
	"github.com/LIKO-12/Discord/likobot"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Overwrites the bot's slash commands, then exits",
	Long: "Overwrites the bot's slash commands, globally or for " +
		"the configured guild. Useful when register_commands is disabled.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		bot, err := likobot.New(cfg)
		if err != nil {
			return fmt.Errorf("error creating bot: %w", err)
		}
		if err = bot.ValidateConfig(); err != nil {
			return err
		}
		created, err := bot.RegisterSlashCommands()
		if err != nil {
			return fmt.Errorf("error registering commands: %w", err)
		}
		for _, c := range created {
			fmt.Fprintf(cmd.OutOrStdout(), "registered /%s (%s)\n", c.Name, c.ID)
		}
		return nil
	},
}

//nolint:gochecknoinits
func init() {
	rootCmd.AddCommand(registerCmd)
}
