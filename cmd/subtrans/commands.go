package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dgallion1/subtrans/internal/cleanup"
	"github.com/dgallion1/subtrans/internal/pipeline"
	"github.com/dgallion1/subtrans/internal/sentence"
	"github.com/dgallion1/subtrans/internal/srt"
	"github.com/dgallion1/subtrans/internal/store"
	"github.com/dgallion1/subtrans/internal/translate"
)

func newTranslateCmd(c *cli) *cobra.Command {
	var (
		opts     pipeline.Options
		out      string
		format   string
		glossary string
		report   string
	)
	cmd := &cobra.Command{
		Use:   "translate <file.srt>",
		Short: "Translate a subtitle file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				base := strings.TrimSuffix(args[0], filepath.Ext(args[0]))
				out = fmt.Sprintf("%s.%s.%s", base, opts.TargetLang, format)
			}

			var glossaries pipeline.GlossaryStore
			if glossary != "" {
				db, err := store.Open(glossary)
				if err != nil {
					return err
				}
				defer db.Close()
				glossaries = db
			}

			runner := pipeline.NewRunner(c.languages, glossaries, translate.BackendConfig{
				DeepLAPIKey:     c.cfg.DeepLAPIKey,
				DeepLAPIURL:     c.cfg.DeepLAPIURL,
				AnthropicAPIKey: c.cfg.AnthropicAPIKey,
				AnthropicModel:  c.cfg.AnthropicModel,
			}, c.cfg.MaxConcurrentBatches, c.log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			result, err := runner.Run(ctx, uuid.NewString(), data, opts, pipeline.Hooks{
				Progress: func(done, total int) {
					c.log.Info("progress", "done", done, "total", total)
				},
			})
			if err != nil {
				return err
			}

			exported, err := result.Export(format)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, exported, 0o644); err != nil {
				return err
			}
			if report != "" {
				result.Report.Title = filepath.Base(args[0])
				if err := os.WriteFile(report, []byte(result.Report.Markdown()), 0o644); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries, %d sentences, %d glossary hits, %d issues, %d warnings\n",
				out, len(result.Entries), len(result.Sentences), result.Report.Usage.GlossaryHits,
				len(result.Issues), len(result.Warnings))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.SourceLang, "from", pipeline.AutoDetect, "Source language code, or 'auto' to detect it.")
	f.StringVar(&opts.TargetLang, "to", "en", "Target language code.")
	f.StringVar(&opts.Engine, "engine", c.cfg.DefaultEngine, "Translation backend: "+strings.Join(translate.BackendNames(), ", ")+".")
	f.IntVar(&opts.DropFirst, "drop-first", 0, "Drop this many entries from the start of the file.")
	f.IntVar(&opts.DropLast, "drop-last", 0, "Drop this many entries from the end of the file.")
	f.BoolVar(&opts.StripTags, "strip-tags", false, "Remove HTML and SSA formatting tags before translating.")
	f.BoolVar(&opts.PurgeCC, "purge-cc", false, "Remove closed caption annotations such as [music] or SPEAKER:.")
	f.BoolVar(&opts.Prewash, "prewash", false, "Join continuation markers and drop unwanted characters in the source.")
	f.DurationVar(&opts.Shift, "shift", 0, "Shift all timecodes, e.g. 1.5s or -200ms.")
	f.BoolVar(&opts.Bilingual, "bilingual", false, "Keep the original lines below the translation.")
	f.StringVarP(&out, "out", "o", "", "Output path (default <file>.<to>.<format>).")
	f.StringVar(&format, "format", srt.FormatSRT, "Output format: srt, vtt, ssa or ttml.")
	f.StringVar(&glossary, "glossary", c.cfg.GlossaryDBPath, "SQLite glossary database; empty disables it.")
	f.StringVar(&report, "report", "", "Write a Markdown report to this path.")
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file.srt>",
		Short: "Report malformed regions of a subtitle file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, issues, err := readEntries(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, is := range issues {
				fmt.Fprintf(w, "%s\n%s\n\n", is, is.Excerpt)
			}
			fmt.Fprintf(w, "%d entries, %d issues\n", len(entries), len(issues))
			if len(issues) > 0 {
				return fmt.Errorf("%s has %d issues", args[0], len(issues))
			}
			return nil
		},
	}
}

func newSentencesCmd(c *cli) *cobra.Command {
	var (
		from    string
		prewash bool
		purge   bool
	)
	cmd := &cobra.Command{
		Use:   "sentences <file.srt>",
		Short: "Print the sentences the segmenter finds in a subtitle file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, _, err := readEntries(args[0])
			if err != nil {
				return err
			}
			profile, err := c.languages.Lookup(from)
			if err != nil {
				return err
			}
			if purge {
				entries, _ = cleanup.PurgeCC(entries, cleanup.DefaultPatterns(), nil)
			}
			if prewash {
				entries, _ = cleanup.Prewash(entries, profile, nil)
			}

			w := cmd.OutOrStdout()
			for i, s := range sentence.Segment(entries, profile.Boundaries()) {
				ids := make([]string, 0, len(s.Sources))
				for _, src := range s.Sources {
					ids = append(ids, entries[src.Entry].ID)
				}
				fmt.Fprintf(w, "%d\t[%s]\t%s", i+1, strings.Join(ids, ","), s.Text)
				if s.Extras != 0 {
					fmt.Fprintf(w, "\t(%s)", s.Extras)
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "en", "Source language code.")
	cmd.Flags().BoolVar(&prewash, "prewash", false, "Apply prewash before segmenting.")
	cmd.Flags().BoolVar(&purge, "purge-cc", false, "Remove closed caption annotations before segmenting.")
	return cmd
}

func readEntries(path string) ([]srt.Entry, []srt.Issue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	text, err := srt.Decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", path, err)
	}
	entries, issues := srt.ParseString(text)
	return entries, issues, nil
}
