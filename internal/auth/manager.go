package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/dl-alexandre/driveshelf/internal/logging"
	"github.com/dl-alexandre/driveshelf/internal/utils"
	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const serviceName = "driveshelf"

// KeySource says where the service account key comes from
type KeySource string

const (
	KeySourceFile    KeySource = "file"
	KeySourceKeyring KeySource = "keyring"
)

// Manager loads service account credentials and builds Drive services
type Manager struct {
	keyringService string
	logger         logging.Logger
}

// NewManager creates a new auth manager
func NewManager(logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Manager{
		keyringService: serviceName,
		logger:         logger,
	}
}

// LoadKey returns the raw service account key JSON. For KeySourceFile ref is
// a path; for KeySourceKeyring it is the keyring account name.
func (m *Manager) LoadKey(source KeySource, ref string) ([]byte, error) {
	switch source {
	case KeySourceFile, "":
		if ref == "" {
			return nil, authError(utils.ErrCodeAuthRequired, "service account key file required", nil)
		}
		data, err := os.ReadFile(ref)
		if err != nil {
			return nil, authError(utils.ErrCodeAuthRequired, fmt.Sprintf("service account key file not readable: %s", ref), err)
		}
		return data, nil
	case KeySourceKeyring:
		secret, err := keyring.Get(m.keyringService, ref)
		if err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				return nil, authError(utils.ErrCodeAuthRequired,
					fmt.Sprintf("no service account key stored in keyring for %q", ref), err)
			}
			return nil, authError(utils.ErrCodeAuthRequired, "system keyring not available", err)
		}
		return []byte(secret), nil
	default:
		return nil, authError(utils.ErrCodeInvalidArgument, fmt.Sprintf("unknown credentials source: %s", source), nil)
	}
}

// StoreKey validates keyData and saves it in the system keyring under account
func (m *Manager) StoreKey(account string, keyData []byte) (*ServiceAccountKey, error) {
	key, err := ParseServiceAccountKey(keyData)
	if err != nil {
		return nil, err
	}
	if err := keyring.Set(m.keyringService, account, string(keyData)); err != nil {
		return nil, authError(utils.ErrCodeAuthRequired, "failed to save key to system keyring", err)
	}
	m.logger.Info("Stored service account key in keyring",
		logging.F("account", account),
		logging.F("clientEmail", key.ClientEmail),
	)
	return key, nil
}

// DeleteKey removes a stored key; a missing key is not an error
func (m *Manager) DeleteKey(account string) error {
	err := keyring.Delete(m.keyringService, account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return authError(utils.ErrCodeAuthRequired, "failed to delete key from system keyring", err)
	}
	return nil
}

// DriveService builds a Drive service authorized by the service account in
// keyData. base, when non-nil, is the transport under the OAuth layer.
func (m *Manager) DriveService(ctx context.Context, keyData []byte, scopes []string, base http.RoundTripper) (*drive.Service, error) {
	key, err := ParseServiceAccountKey(keyData)
	if err != nil {
		return nil, err
	}
	if len(scopes) == 0 {
		return nil, authError(utils.ErrCodeInvalidArgument, "at least one scope required", nil)
	}

	creds, err := google.CredentialsFromJSON(ctx, keyData, scopes...)
	if err != nil {
		return nil, authError(utils.ErrCodeAuthInvalid, "failed to parse service account key", err)
	}

	if base == nil {
		base = http.DefaultTransport
	}
	client := &http.Client{
		Transport: &oauth2.Transport{
			Source: creds.TokenSource,
			Base:   base,
		},
	}

	m.logger.Debug("Authorized as service account",
		logging.F("clientEmail", key.ClientEmail),
		logging.F("projectId", key.ProjectID),
	)

	return drive.NewService(ctx, option.WithHTTPClient(client))
}

func authError(code, message string, cause error) error {
	builder := utils.NewCLIError(code, message)
	if cause != nil {
		builder.WithContext("cause", cause.Error())
	}
	return utils.WrapAppError(builder.Build(), cause)
}
