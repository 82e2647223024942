package main

import (
	"fmt"
	"os"

	"go-qrscan-webapp/internal/config"
	"go-qrscan-webapp/internal/handlers"
	"go-qrscan-webapp/internal/logger"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

type app struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log *logger.StructuredLogger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "qrscan",
		Short:         "Camera QR code scanner that opens scanned links",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", os.Getenv("QRSCAN_CONFIG"), "path to a JSON or YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newServeCmd(a),
		newScanCmd(a),
		newDecodeCmd(a),
		newSheetCmd(a),
	)
	return root
}

// init loads configuration and the global logger. Commands other than
// serve print results on stdout, so their logs default to stderr.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}

	output := cfg.Logging.File
	if cmd.Name() != "serve" && (output == "" || output == "stdout") {
		output = "stderr"
	}

	err = logger.InitializeLogger(logger.LoggerConfig{
		Level:       logger.ParseLevel(cfg.Logging.Level),
		Service:     "qrscan",
		Version:     version,
		Environment: cfg.Logging.Environment,
		OutputPath:  output,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	handlers.Version = version
	a.cfg = cfg
	a.log = logger.GlobalLogger
	return nil
}
