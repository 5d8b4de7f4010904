package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nijaru/yt-themes/config"
	"github.com/nijaru/yt-themes/handlers"
	"github.com/nijaru/yt-themes/models"
	"github.com/nijaru/yt-themes/render"
	"github.com/nijaru/yt-themes/themes"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		config.LoadDotEnv()
		c.config, c.configErr = config.Load(strings.TrimSpace(*c.configFlag))
	})
	return c.config, c.configErr
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "yt-themes",
		Short:         "Zero-shot theme classification for subtitles and scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, ctx)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (TOML)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newAnalyzeCommand(ctx))
	rootCmd.AddCommand(newRunsCommand(ctx))

	return rootCmd
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web interface and API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, ctx)
		},
	}
}

func runServe(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(sigCtx, cfg, appOptions{withDB: true, withRunner: true})
	if err != nil {
		return err
	}
	defer app.Close()

	server := handlers.NewServer(cfg,
		handlers.WithLogger(app.logger),
		handlers.WithService(app.service),
		handlers.WithDatabase(app.db),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-sigCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.WithError(err).Error("Server shutdown error")
		return err
	}
	app.logger.Info("Server stopped")
	return nil
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var themeList, subtitlesPath, savePath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Score themes for a subtitles path and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("themes") {
				themeList = cfg.Defaults.Themes
			}
			if !cmd.Flags().Changed("subtitles") {
				subtitlesPath = cfg.Defaults.SubtitlesPath
			}
			if !cmd.Flags().Changed("save") {
				savePath = cfg.Defaults.SavePath
			}

			app, err := newApplication(cmd.Context(), cfg, appOptions{console: os.Stderr, withRunner: true})
			if err != nil {
				return err
			}
			defer app.Close()

			table, err := app.service.Score(cmd.Context(), themes.Request{
				Themes:        themeList,
				SubtitlesPath: subtitlesPath,
				SavePath:      savePath,
			})
			if err != nil {
				return fmt.Errorf("%s", themes.UserMessage(err))
			}

			if asJSON {
				return writeJSON(cmd, models.ThemesResponse{Rows: table.Rows})
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.TextTable(table.Rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&themeList, "themes", "", "Comma-separated themes")
	cmd.Flags().StringVar(&subtitlesPath, "subtitles", "", "Path to subtitles or scripts")
	cmd.Flags().StringVar(&savePath, "save", "", "CSV path for the classifier output")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	return cmd
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent analyses recorded by the web interface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			app, err := newApplication(cmd.Context(), cfg, appOptions{console: os.Stderr, withDB: true})
			if err != nil {
				return err
			}
			defer app.Close()

			runs, err := app.service.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			summaries := make([]models.RunSummary, len(runs))
			for i, run := range runs {
				summaries[i] = models.NewRunSummary(run)
			}

			out := render.RunsTable(summaries)
			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
