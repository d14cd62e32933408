package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa/internal/audio"
	"github.com/docqa/docqa/internal/bridge"
	"github.com/docqa/docqa/internal/logger"
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Run the command bridge for front-end integration",
	Long: `Speaks a line-delimited JSON protocol on stdio so a desktop front-end
can drive docqa. Requests arrive one per line on stdin; responses and
indexing events leave one per line on stdout. All logs go to stderr.`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
}

func runBridge(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	engine, err := newEngine(cfg, store)
	if err != nil {
		return err
	}

	transcriber := audio.NewTranscriber(cfg.Transcription)
	if transcriber == nil {
		logger.Debug("voice input not configured")
	}

	logger.Info("bridge started on stdio (%d chunks indexed)", store.Index().Count())

	b := bridge.New(store, engine, transcriber, bridge.Options{Workers: cfg.Bridge.Workers})
	return b.Run(ctx, os.Stdin, os.Stdout)
}
