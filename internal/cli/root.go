package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dl-alexandre/driveshelf/internal/config"
	"github.com/dl-alexandre/driveshelf/internal/logging"
	"github.com/dl-alexandre/driveshelf/internal/types"
	"github.com/dl-alexandre/driveshelf/internal/utils"
	"github.com/dl-alexandre/driveshelf/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	globalFlags    types.GlobalFlags
	logger         logging.Logger = logging.NewNoOpLogger()
	debugTransport *logging.DebugTransport
	configLoader   = config.NewLoader()
	appConfig      = config.DefaultConfig()
)

var rootCmd = &cobra.Command{
	Use:   "driveshelf",
	Short: "Index a Google Drive folder into a JSON cache and serve it",
	Long: `driveshelf polls the subfolders of one Google Drive folder, caches their
file metadata and summary text in a JSON file, and serves that file as a
small web site.

Settings come from a driveshelf.yaml config file, DRIVESHELF_* environment
variables and flags, in increasing order of precedence.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateGlobalFlags(); err != nil {
			return err
		}

		if err := bindConfigFlags(cmd.Flags()); err != nil {
			return err
		}
		cfg, err := configLoader.Load(globalFlags.Config)
		if err != nil {
			return err
		}
		appConfig = cfg

		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		if globalFlags.Quiet {
			level = logging.ERROR
		}
		if globalFlags.Verbose {
			level = logging.DEBUG
		}

		logFile := cfg.LogFile
		if globalFlags.LogFile != "" {
			logFile = globalFlags.LogFile
		}

		logConfig := logging.DefaultLogConfig()
		logConfig.Level = level
		logConfig.OutputFile = logFile
		logConfig.EnableConsole = !globalFlags.Quiet
		logConfig.EnableDebug = globalFlags.Debug

		logger, debugTransport, err = logging.NewDebugLoggerWithTransport(logConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if used := configLoader.ConfigFileUsed(); used != "" {
			logger.Debug("Using config file", logging.F("path", used))
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Close()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := newOutputWriter(cmd)
		if globalFlags.JSON {
			return out.WriteSuccess("version", version.Get())
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar((*string)(&globalFlags.OutputFormat), "output", "json", "Output format (json, table)")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Debug, "debug", false, "Enable debug output, including HTTP requests")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Config, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogFile, "log-file", "", "Path to log file")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.JSON, "json", false, "Output in JSON format (alias for --output json)")

	rootCmd.PersistentFlags().String("log-level", "", "Log level (quiet, normal, verbose, debug)")

	rootCmd.AddCommand(versionCmd)
}

// configFlags maps flag names to the config keys they override. Several
// commands share a flag name, so binding happens for the running command only.
var configFlags = map[string]string{
	"log-level":          config.KeyLogLevel,
	"root-folder":        config.KeyRootFolderID,
	"cache":              config.KeyCachePath,
	"exclude-folder":     config.KeyExcludeFolder,
	"history":            config.KeyHistoryPath,
	"credentials":        config.KeyCredentialsFile,
	"credentials-source": config.KeyCredentialsSource,
	"keyring-account":    config.KeyKeyringAccount,
	"listen":             config.KeyListenAddr,
}

func bindConfigFlags(flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := configFlags[f.Name]
		if !ok || bindErr != nil {
			return
		}
		bindErr = configLoader.BindFlag(key, f)
	})
	return bindErr
}

func validateGlobalFlags() error {
	// Handle --json flag as alias for --output json
	if globalFlags.JSON {
		globalFlags.OutputFormat = types.OutputFormatJSON
	}

	if globalFlags.OutputFormat != types.OutputFormatJSON && globalFlags.OutputFormat != types.OutputFormatTable {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			fmt.Sprintf("invalid output format: %s", globalFlags.OutputFormat)).Build())
	}
	return nil
}

// exitError carries the process exit code for an error already reported
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		stop()
		os.Exit(exitErr.code)
	}

	// errors raised before a command could write its own envelope
	code := utils.ExitUnknown
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		code = utils.GetExitCode(appErr.CLIError.Code)
		fmt.Fprintf(os.Stderr, "Error [%s]: %s\n", appErr.CLIError.Code, appErr.CLIError.Message)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	stop()
	os.Exit(code)
	return nil
}

func newOutputWriter(cmd *cobra.Command) *OutputWriter {
	out := NewOutputWriter(globalFlags.OutputFormat, globalFlags.Quiet)
	out.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
	return out
}

// handleError writes err as an error envelope and returns an exitError
// carrying the matching exit code
func handleError(writer *OutputWriter, command string, err error) error {
	var cliErr types.CLIError
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		cliErr = appErr.CLIError
	} else {
		cliErr = utils.NewCLIError(utils.ErrCodeUnknown, err.Error()).Build()
	}
	if writeErr := writer.WriteError(command, cliErr); writeErr != nil {
		logger.Error("Failed to write error output", logging.F("error", writeErr.Error()))
	}
	return &exitError{code: utils.GetExitCode(cliErr.Code)}
}
