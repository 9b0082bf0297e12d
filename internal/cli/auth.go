package cli

import (
	"os"

	"github.com/dl-alexandre/driveshelf/internal/auth"
	"github.com/dl-alexandre/driveshelf/internal/utils"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the service account key",
}

var authStoreKeyCmd = &cobra.Command{
	Use:   "store-key <key-file>",
	Short: "Save a service account key in the system keyring",
	Long: `Validates a service account JSON key and stores it in the system keyring.
Set credentials_source to 'keyring' afterwards to use it.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthStoreKey,
}

var authDeleteKeyCmd = &cobra.Command{
	Use:   "delete-key",
	Short: "Remove the service account key from the system keyring",
	Args:  cobra.NoArgs,
	RunE:  runAuthDeleteKey,
}

func init() {
	authCmd.PersistentFlags().String("keyring-account", "", "Keyring entry name (default \"default\")")
	authCmd.AddCommand(authStoreKeyCmd)
	authCmd.AddCommand(authDeleteKeyCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthStoreKey(cmd *cobra.Command, args []string) error {
	out := newOutputWriter(cmd)

	data, err := os.ReadFile(args[0])
	if err != nil {
		return handleError(out, "auth.store-key", utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"cannot read key file: "+err.Error()).Build()))
	}

	key, err := auth.NewManager(logger).StoreKey(appConfig.KeyringAccount, data)
	if err != nil {
		return handleError(out, "auth.store-key", err)
	}

	return out.WriteSuccess("auth.store-key", map[string]string{
		"account":     appConfig.KeyringAccount,
		"clientEmail": key.ClientEmail,
		"projectId":   key.ProjectID,
	})
}

func runAuthDeleteKey(cmd *cobra.Command, args []string) error {
	out := newOutputWriter(cmd)

	if err := auth.NewManager(logger).DeleteKey(appConfig.KeyringAccount); err != nil {
		return handleError(out, "auth.delete-key", err)
	}
	return out.WriteSuccess("auth.delete-key", map[string]string{
		"account": appConfig.KeyringAccount,
	})
}
