package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/dfd-go/mode"
	"github.com/khaledhikmat/dfd-go/pipeline"
	"github.com/khaledhikmat/dfd-go/service/config"
	"github.com/khaledhikmat/dfd-go/service/data"
	"github.com/khaledhikmat/dfd-go/service/inbox"
	"github.com/khaledhikmat/dfd-go/service/inference"
	"github.com/khaledhikmat/dfd-go/service/ledger"
	"github.com/khaledhikmat/dfd-go/service/lgr"
	"github.com/khaledhikmat/dfd-go/service/storage"
	"github.com/khaledhikmat/dfd-go/service/tracing"
	"github.com/khaledhikmat/dfd-go/service/webhook"
)

const (
	// WARNING: this has to be bigger that the mode processor shutdown time
	waitOnShutdown = 8 * time.Second
)

var modeProcessors = map[string]mode.Processor{
	"detect":   mode.Detect,
	"verify":   mode.Verify,
	"register": mode.Register,
	"count":    mode.Count,
	"history":  mode.History,
	"watch":    mode.Watch,
}

// CLI flags
var (
	intervalFlag    int
	descriptionFlag string
	hashFlag        string
	limitFlag       int
	jsonFlag        bool
)

var rootCmd = &cobra.Command{
	Use:   "dfd",
	Short: "Frame-sampling deepfake screening for video files",
	Long: `dfd scores every Nth frame of a video with a binary image classifier and
reports the mean fake probability. Content hashes can be checked against and
registered on a ledger of authentic videos.

Examples:
  dfd detect ./clip.mp4
  dfd detect ./clip.mp4 --interval 4 --json
  dfd register ./clip.mp4 --description "press briefing"
  dfd verify ./clip.mp4
  dfd watch`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Print results as JSON")

	detectCmd := &cobra.Command{
		Use:   "detect <video>",
		Short: "Screen a local video",
		Args:  cobra.ExactArgs(1),
		RunE:  runMode("detect"),
	}
	detectCmd.Flags().IntVarP(&intervalFlag, "interval", "n", 0, "Score every Nth frame (0 = SAMPLE_INTERVAL)")

	verifyCmd := &cobra.Command{
		Use:   "verify [video]",
		Short: "Check whether a video's content hash is registered",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMode("verify"),
	}
	verifyCmd.Flags().StringVar(&hashFlag, "hash", "", "Verify this SHA-256 instead of hashing a file")

	registerCmd := &cobra.Command{
		Use:   "register <video>",
		Short: "Register a video's content hash as authentic",
		Args:  cobra.ExactArgs(1),
		RunE:  runMode("register"),
	}
	registerCmd.Flags().StringVarP(&descriptionFlag, "description", "d", "", "Description stored with the hash")

	countCmd := &cobra.Command{
		Use:   "count",
		Short: "Print the number of registered videos",
		Args:  cobra.NoArgs,
		RunE:  runMode("count"),
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List stored analyses, newest first",
		Args:  cobra.NoArgs,
		RunE:  runMode("history"),
	}
	historyCmd.Flags().StringVar(&hashFlag, "hash", "", "Only show the latest analysis of this SHA-256")
	historyCmd.Flags().IntVar(&limitFlag, "limit", 20, "Maximum analyses to list (0 = all)")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Screen every video that arrives in the inbox until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runMode("watch"),
	}
	watchCmd.Flags().IntVarP(&intervalFlag, "interval", "n", 0, "Score every Nth frame (0 = SAMPLE_INTERVAL)")

	rootCmd.AddCommand(detectCmd, verifyCmd, registerCmd, countCmd, historyCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMode(modeType string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		req := mode.Request{
			Hash:        hashFlag,
			Description: descriptionFlag,
			Interval:    intervalFlag,
			Limit:       limitFlag,
			JSON:        jsonFlag,
			Out:         cmd.OutOrStdout(),
		}
		if len(args) > 0 {
			req.Path = args[0]
		}
		if modeType == "verify" && req.Path == "" && req.Hash == "" {
			return xerrors.New("verify needs a video path or --hash")
		}

		return run(modeType, req)
	}
}

func run(modeType string, req mode.Request) error {
	rootCtx := context.Background()
	canxCtx, canxFn := context.WithCancel(rootCtx)
	defer canxFn()

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			lgr.Logger.Info(
				"received kill signal",
				slog.Any("signal", sig),
			)
			canxFn()
		case <-canxCtx.Done():
		}
	}()

	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			lgr.Logger.Error("error loading .env file", slog.Any("error", xerrors.New(err.Error())))
			return err
		}
	}

	modeProc, ok := modeProcessors[modeType]
	if !ok {
		lgr.Logger.Error("invalid mode", slog.String("mode", modeType))
		return xerrors.Errorf("invalid mode: %s", modeType)
	}

	cfgSvc, err := config.NewEnv()
	if err != nil {
		lgr.Logger.Error("invalid configuration", slog.Any("error", err))
		return err
	}

	lgr.Init(cfgSvc.GetRunTimeEnv(), cfgSvc.GetLogLevel(), filepath.Join(cfgSvc.GetDataFolder(), "dfd.log"))

	shutdownTracing, err := tracing.Init(canxCtx, cfgSvc.GetOtelEndpoint())
	if err != nil {
		lgr.Logger.Warn("tracing disabled", slog.Any("error", err))
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(rootCtx, 2*time.Second)
			defer cancel()
			_ = shutdownTracing(shutdownCtx)
		}()
	}

	svcs, err := newServices(canxCtx, cfgSvc, modeType)
	if err != nil {
		lgr.Logger.Error("failed to create services", slog.String("mode", modeType), slog.Any("error", err))
		return err
	}
	defer svcs.DataSvc.Close()

	// Create mode processor result
	modeProcResult := make(chan error, 1)

	// Start the mode processor
	go func() {
		modeProcResult <- modeProc(canxCtx, svcs, req, pipeline.SimpleAlerter)
	}()

	// Wait for cancellation or mode proc
	select {
	case <-canxCtx.Done():
		lgr.Logger.Info(
			"dfd context cancelled",
			slog.String("mode", modeType),
		)

	case err := <-modeProcResult:
		return err
	}

	lgr.Logger.Info(
		"dfd is waiting for the mode processor to exit",
	)

	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	select {
	case <-timer.C:
		lgr.Logger.Info(
			"dfd shutdown waiting period expired. Exiting now",
			slog.Duration("period", waitOnShutdown),
		)
		return canxCtx.Err()

	case err := <-modeProcResult:
		return err
	}
}

// newServices picks an implementation per service from the configuration.
// Only watch needs the inbox and the archive.
func newServices(canxCtx context.Context, cfgSvc config.IService, modeType string) (pipeline.ServicesFactory, error) {
	svcs := pipeline.ServicesFactory{
		CfgSvc:     cfgSvc,
		LedgerSvc:  ledger.NewFiles(cfgSvc),
		WebhookSvc: webhook.NewHTTP(cfgSvc),
		NewInferenceSvc: func() (inference.IService, error) {
			return inference.NewDNN(cfgSvc)
		},
	}

	// Data service
	if cfgSvc.GetDatabaseURL() != "" {
		dataSvc, err := data.NewPostgres(canxCtx, cfgSvc.GetDatabaseURL())
		if err != nil {
			return svcs, err
		}
		svcs.DataSvc = dataSvc
	} else {
		svcs.DataSvc = data.NewFilesDB(cfgSvc)
	}

	if modeType != "watch" {
		return svcs, nil
	}

	// Inbox service
	if cfgSvc.GetRabbitMQURL() != "" {
		inboxSvc, err := inbox.NewRabbitMQ(canxCtx, cfgSvc, pipeline.IsAllowedVideo)
		if err != nil {
			svcs.DataSvc.Close()
			return svcs, err
		}
		svcs.InboxSvc = inboxSvc
	} else {
		svcs.InboxSvc = inbox.NewTimed(canxCtx, cfgSvc, pipeline.IsAllowedVideo)
	}

	// Storage service
	if cfgSvc.GetMinioParameters().Endpoint != "" {
		storageSvc, err := storage.NewMinio(canxCtx, cfgSvc)
		if err != nil {
			svcs.DataSvc.Close()
			svcs.InboxSvc.Close()
			return svcs, err
		}
		svcs.StorageSvc = storageSvc
	} else {
		svcs.StorageSvc = storage.NewLocal(cfgSvc)
	}

	return svcs, nil
}
