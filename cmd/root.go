package cmd

import (
	"errors"
	"log/slog"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/melih-ucgun/calswitch/internal/config"
	"github.com/melih-ucgun/calswitch/internal/consts"
	"github.com/melih-ucgun/calswitch/internal/core"
)

var rootCmd = &cobra.Command{
	Use:   "calswitch",
	Short: "Select and deselect connected calendars optimistically.",
	Long: `calswitch toggles which connected calendars are checked for conflicts.
Every toggle is shown immediately, sent to the booking server and
rolled back with a notification when the server refuses it.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
}

var (
	verboseCount int
	cfg          *config.Config
	logger       *core.DefaultLogger
)

// errReported marks failures that were already shown to the user.
var errReported = errors.New("reported")

func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errReported) {
		pterm.Error.Println(err)
	}
	return err
}

func init() {
	// PTerm output to Stderr (to keep Stdout clean for piping)
	pterm.SetDefaultOutput(os.Stderr)
	pterm.Success.Writer = os.Stderr
	pterm.Info.Writer = os.Stderr
	pterm.Error.Writer = os.Stderr
	pterm.Warning.Writer = os.Stderr
	pterm.DefaultHeader.Writer = os.Stderr

	rootCmd.PersistentFlags().StringP("config", "c", consts.ConfigFileName, "config file path")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().CountVarP(&verboseCount, "verbose", "v", "Increase verbosity level (-v, -vv)")
}

func loadSettings(cmd *cobra.Command, args []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	cfgFile, _ := cmd.Flags().GetString("config")
	loaded, err := config.Load(cfgFile, os.Getenv)
	if err != nil {
		return err
	}
	cfg = loaded

	level := core.ParseLogLevel(cfg.Log.Level)
	switch {
	case verboseCount >= 2:
		level = core.LevelTrace
	case verboseCount == 1 && level > core.LevelDebug:
		level = core.LevelDebug
	}
	logger = core.NewFormattedLogger(os.Stderr, level, cfg.Log.Format, cfg.Log.Format != "json")
	slog.SetDefault(logger.Slog())
	return nil
}
