package auth

import (
	"encoding/json"
	"fmt"

	"github.com/dl-alexandre/driveshelf/internal/utils"
)

// ServiceAccountKey represents the JSON structure of a service account key file
type ServiceAccountKey struct {
	Type                    string `json:"type"`
	ProjectID               string `json:"project_id"`
	PrivateKeyID            string `json:"private_key_id"`
	PrivateKey              string `json:"private_key"`
	ClientEmail             string `json:"client_email"`
	ClientID                string `json:"client_id"`
	AuthURI                 string `json:"auth_uri"`
	TokenURI                string `json:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `json:"client_x509_cert_url"`
}

// ParseServiceAccountKey decodes and sanity-checks a service account key
func ParseServiceAccountKey(keyData []byte) (*ServiceAccountKey, error) {
	var key ServiceAccountKey
	if err := json.Unmarshal(keyData, &key); err != nil {
		return nil, authError(utils.ErrCodeAuthInvalid, "failed to parse service account key", err)
	}
	if key.Type != "service_account" {
		return nil, authError(utils.ErrCodeAuthInvalid, fmt.Sprintf("invalid service account key type: %q", key.Type), nil)
	}
	if key.ClientEmail == "" {
		return nil, authError(utils.ErrCodeAuthInvalid, "missing client_email in service account key", nil)
	}
	if key.PrivateKey == "" {
		return nil, authError(utils.ErrCodeAuthInvalid, "missing private_key in service account key", nil)
	}
	return &key, nil
}
