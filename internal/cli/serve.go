package cli

import (
	"github.com/dl-alexandre/driveshelf/internal/cache"
	"github.com/dl-alexandre/driveshelf/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the cache as a web site",
	Long: `Serves HTML pages and a JSON endpoint built from the cache file. The file
is read on every request; run 'driveshelf sync' separately to refresh it.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "Address to listen on (default :8080)")
	serveCmd.Flags().String("cache", "", "Path to the JSON cache file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	out := newOutputWriter(cmd)
	cfg := appConfig

	if !globalFlags.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	srv, err := server.New(cache.NewStore(cfg.CachePath, logger), logger)
	if err != nil {
		return handleError(out, "serve", err)
	}
	out.Log("Serving %s on %s", cfg.CachePath, cfg.ListenAddr)
	if err := srv.Run(cmd.Context(), cfg.ListenAddr); err != nil {
		return handleError(out, "serve", err)
	}
	return nil
}
