package cli

import (
	"context"
	"net/http"

	"github.com/dl-alexandre/driveshelf/internal/api"
	"github.com/dl-alexandre/driveshelf/internal/auth"
	"github.com/dl-alexandre/driveshelf/internal/config"
	"github.com/dl-alexandre/driveshelf/internal/utils"
)

// driveClientFactory is replaced in tests to point sync at a fake Drive
var driveClientFactory = newDriveClient

// newDriveClient authorizes with the configured service account key and
// wraps the Drive service in the retrying client
func newDriveClient(ctx context.Context, cfg *config.Config) (*api.Client, error) {
	mgr := auth.NewManager(logger)

	source := auth.KeySource(cfg.CredentialsSource)
	ref := cfg.CredentialsFile
	if source == auth.KeySourceKeyring {
		ref = cfg.KeyringAccount
	}

	keyData, err := mgr.LoadKey(source, ref)
	if err != nil {
		return nil, err
	}

	var base http.RoundTripper
	if debugTransport != nil {
		base = debugTransport
	}

	svc, err := mgr.DriveService(ctx, keyData, utils.ScopesSync, base)
	if err != nil {
		return nil, err
	}

	return api.NewClient(svc, cfg.MaxRetries, cfg.RetryBaseDelay, logger), nil
}
