package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/arbitro/internal/logger"
)

func locateCmd() *cobra.Command {
	var (
		doc     string
		text    string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Print the page of a PDF that contains a fragment",
		Long: `Print the 1-based page of a PDF whose text contains the fragment.

The document may be an http(s) URL or a path under documents.root_dir.
When nothing matches, or the document cannot be read, page 1 is printed.`,
		Example: `  arbitro locate --doc https://example.com/reglas.pdf --text "Un jugador estará en posición de fuera de juego"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(text) == "" {
				return errors.New("--text must not be blank")
			}

			cfg, env, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			level := cfg.Logging.Level
			if !verbose && level == "" {
				level = "error"
			}
			logger, err := logpkg.NewLogger(env, level)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			stack, err := buildLocator(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer stack.Close()

			res := stack.locator.Locate(cmd.Context(), text, doc)
			logger.Debug("Locate finished",
				zap.String("outcome", string(res.Outcome())),
				zap.Int("pages_scanned", res.PagesScanned()))

			out := cmd.OutOrStdout()
			if verbose {
				fmt.Fprintf(out, "%d\t%s\t%d pages scanned\n", res.Page(), res.Outcome(), res.PagesScanned())
				return nil
			}
			fmt.Fprintln(out, res.Page())
			return nil
		},
	}

	cmd.Flags().StringVar(&doc, "doc", "", "Document reference: http(s) URL or path under documents.root_dir")
	cmd.Flags().StringVar(&text, "text", "", "Fragment text to look for")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the outcome and pages scanned as well")
	_ = cmd.MarkFlagRequired("doc")
	_ = cmd.MarkFlagRequired("text")

	return cmd
}
