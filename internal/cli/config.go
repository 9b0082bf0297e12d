package cli

import (
	"strconv"

	"github.com/dl-alexandre/driveshelf/internal/config"
	"github.com/dl-alexandre/driveshelf/internal/types"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Prints the configuration after merging defaults, the config file,
DRIVESHELF_* environment variables and flags.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := newOutputWriter(cmd)
	return out.WriteSuccess("config.show", &configView{
		File:   configLoader.ConfigFileUsed(),
		Config: appConfig,
	})
}

type configView struct {
	File   string         `json:"file,omitempty"`
	Config *config.Config `json:"config"`
}

func (v *configView) AsTableRenderer() types.TableRenderer {
	return v
}

func (v *configView) Headers() []string {
	return []string{"Key", "Value"}
}

func (v *configView) Rows() [][]string {
	c := v.Config
	file := v.File
	if file == "" {
		file = "(none)"
	}
	return [][]string{
		{"config_file", file},
		{config.KeyRootFolderID, c.RootFolderID},
		{config.KeyCredentialsSource, c.CredentialsSource},
		{config.KeyCredentialsFile, c.CredentialsFile},
		{config.KeyKeyringAccount, c.KeyringAccount},
		{config.KeyCachePath, c.CachePath},
		{config.KeyHistoryPath, c.HistoryPath},
		{config.KeyExcludeFolder, c.ExcludeFolder},
		{config.KeyListenAddr, c.ListenAddr},
		{config.KeyMaxRetries, strconv.Itoa(c.MaxRetries)},
		{config.KeyRetryBaseDelay, strconv.Itoa(c.RetryBaseDelay)},
		{config.KeyLogLevel, c.LogLevel},
		{config.KeyLogFile, c.LogFile},
	}
}

func (v *configView) EmptyMessage() string {
	return "No configuration"
}
