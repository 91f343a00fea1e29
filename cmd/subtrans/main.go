// Command subtrans runs the subtitle translation pipeline on local files.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/subtrans/internal/config"
	"github.com/dgallion1/subtrans/internal/language"
)

// cli holds flags shared by every command.
type cli struct {
	cfg       config.Config
	profiles  string
	verbose   bool
	languages *language.Registry
	log       *slog.Logger
}

func main() {
	c := &cli{cfg: config.Load()}

	rootCmd := &cobra.Command{
		Use:           "subtrans",
		Short:         "Translate SRT subtitles sentence by sentence and reflow them into the original entries",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if c.verbose {
				level = slog.LevelDebug
			}
			c.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			c.languages = language.DefaultRegistry()
			if c.profiles != "" {
				if err := c.languages.LoadFile(c.profiles); err != nil {
					return fmt.Errorf("language profiles: %w", err)
				}
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&c.profiles, "profiles", c.cfg.LanguageProfiles, "YAML file with language profile overrides.")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log pipeline progress to stderr.")

	rootCmd.AddCommand(newTranslateCmd(c), newCheckCmd(), newSentencesCmd(c))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
