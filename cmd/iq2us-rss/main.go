package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Adda-Baaj/iq2us-rss/internal/app"
	"github.com/Adda-Baaj/iq2us-rss/internal/config"
	"github.com/Adda-Baaj/iq2us-rss/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "iq2us-rss:", err)
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "iq2us-rss [flags] <sitemap-url>",
		Short:         "Generate a podcast RSS feed from the Intelligence Squared U.S. debates",
		Long:          "Scrapes the debate pages listed in a sitemap for their audio podcasts and renders them as an RSS 2.0 feed with iTunes extensions.",
		Version:       config.Version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v, args[0])
		},
	}

	if err := config.BindFlags(cmd.Flags(), v); err != nil {
		panic(err)
	}
	return cmd
}

func run(ctx context.Context, v *viper.Viper, url string) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}

	cfg, err := config.Load(v, url)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.DebugObj("configuration loaded", "config", map[string]any{
		"url":        cfg.URL,
		"audio":      string(cfg.Audio),
		"since_days": cfg.SinceDays,
		"sort":       cfg.Sort,
		"output":     cfg.Output,
	})
	return app.New(cfg, log).Run(ctx)
}
