package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/i474232898/sensor-assistant/internal/app"
	"github.com/i474232898/sensor-assistant/internal/config"
	"github.com/i474232898/sensor-assistant/internal/ingest"
	"github.com/i474232898/sensor-assistant/internal/logging"
)

// chatLogFile keeps log lines from drawing over the chat screen.
const chatLogFile = "sensor-assistant.log"

var (
	// Global flags
	configFile string

	cfg     *config.AppConfig
	logger  *slog.Logger
	logFile *os.File

	// Ingest flags
	serialPort string
	serialBaud int
	replayFrom string
)

var rootCmd = &cobra.Command{
	Use:   app.Name,
	Short: "Farm sensor station: serial ingestion and a query assistant",
	Long: `sensor-assistant stores readings from a serial-attached sensor station
and answers questions about them: averages, graphs, and open-ended advice
from an external model with built-in fallbacks.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		var w io.Writer = os.Stdout
		path := cfg.LogFile
		switch {
		case path == "" && cmd.Name() == "chat":
			path = chatLogFile
		case path == "" && cmd.Name() == "ask":
			w = os.Stderr
		}
		if path != "" {
			logFile, err = logging.OpenFile(path)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			w = logFile
		}

		logger = logging.New(cfg, app.Name, w)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			_ = logFile.Close()
		}
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Read sensor lines from the serial port (or a capture) into the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.IngestOptions{
			Port: cfg.Serial.Port,
			Baud: cfg.Serial.Baud,
			From: replayFrom,
		}
		if serialPort != "" {
			opts.Port = serialPort
		}
		if serialBaud > 0 {
			opts.Baud = serialBaud
		}
		_, err := app.RunIngest(cmd.Context(), cfg, logger, opts)
		return err
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := ingest.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
			return nil
		}
		for _, p := range ports {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat with a graph panel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.RunChat(cmd.Context(), cfg, logger)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask QUESTION...",
	Short: "Answer one question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Ask(cmd.Context(), cfg, logger, cmd.OutOrStdout(), strings.Join(args, " "))
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.RunServe(cmd.Context(), cfg, logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (or set CONFIG_FILE)")

	ingestCmd.Flags().StringVar(&serialPort, "port", "", "Serial device (default from SERIAL_PORT)")
	ingestCmd.Flags().IntVar(&serialBaud, "baud", 0, "Baud rate (default from SERIAL_BAUD)")
	ingestCmd.Flags().StringVar(&replayFrom, "from", "", "Replay a capture file instead of the serial port (- for stdin)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	// After the first signal a second one gets the default behaviour.
	go func() {
		<-ctx.Done()
		stop()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
