/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package directory

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	admin "google.golang.org/api/admin/directory/v1"
)

// DefaultP12Password is the fixed password Google uses for generated P12 keys.
const DefaultP12Password = "notasecret"

// GoogleCredentials configures a service account acting on behalf of a
// Workspace administrator (domain-wide delegation).
type GoogleCredentials struct {
	// KeyFile is a service account key in JSON, PEM or PKCS#12 form.
	KeyFile     string
	KeyPassword string
	// AdminEmail is the impersonated administrator.
	AdminEmail string
	// ServiceAccountEmail is required for PEM and PKCS#12 keys and overrides
	// client_email from a JSON key.
	ServiceAccountEmail string
	Scopes              []string
	// TokenURL overrides the OAuth2 token endpoint for PEM and PKCS#12 keys.
	TokenURL string
}

// GoogleTokenProvider mints OAuth2 access tokens from a service account key.
type GoogleTokenProvider struct {
	config *jwt.Config
}

// NewGoogleTokenProvider reads and parses the key file.
func NewGoogleTokenProvider(creds GoogleCredentials) (*GoogleTokenProvider, error) {
	if creds.KeyFile == "" {
		return nil, fmt.Errorf("%w: service account key file", ErrConfigurationMissing)
	}

	if creds.AdminEmail == "" {
		return nil, fmt.Errorf("%w: admin email", ErrConfigurationMissing)
	}

	if len(creds.Scopes) == 0 {
		creds.Scopes = []string{admin.AdminDirectoryDeviceChromeosReadonlyScope}
	}

	data, err := os.ReadFile(creds.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file '%s': %w", creds.KeyFile, err)
	}

	config, err := jwtConfigFromKey(data, &creds)
	if err != nil {
		return nil, err
	}

	config.Subject = creds.AdminEmail

	return &GoogleTokenProvider{config: config}, nil
}

func jwtConfigFromKey(data []byte, creds *GoogleCredentials) (*jwt.Config, error) {
	trimmed := bytes.TrimSpace(data)

	if bytes.HasPrefix(trimmed, []byte("{")) {
		config, err := google.JWTConfigFromJSON(trimmed, creds.Scopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse JSON key: %w", err)
		}

		if creds.ServiceAccountEmail != "" {
			config.Email = creds.ServiceAccountEmail
		}

		return config, nil
	}

	if creds.ServiceAccountEmail == "" {
		return nil, fmt.Errorf("%w: service account email", ErrConfigurationMissing)
	}

	keyPEM := trimmed

	if !bytes.Contains(trimmed, []byte("-----BEGIN")) {
		var err error

		keyPEM, err = pemFromP12(data, creds.KeyPassword)
		if err != nil {
			return nil, err
		}
	}

	tokenURL := creds.TokenURL
	if tokenURL == "" {
		tokenURL = google.JWTTokenURL
	}

	return &jwt.Config{
		Email:      creds.ServiceAccountEmail,
		PrivateKey: keyPEM,
		Scopes:     creds.Scopes,
		TokenURL:   tokenURL,
	}, nil
}

func pemFromP12(data []byte, password string) ([]byte, error) {
	if password == "" {
		password = DefaultP12Password
	}

	key, _, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PKCS#12 key: %w", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUnsupportedKey, err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// GetAccessToken exchanges a signed JWT assertion for an access token.
func (p *GoogleTokenProvider) GetAccessToken(ctx context.Context) (string, error) {
	token, err := p.config.TokenSource(ctx).Token()
	if err != nil {
		return "", fmt.Errorf("failed to obtain access token: %w", err)
	}

	if token.AccessToken == "" {
		return "", errEmptyAccessToken
	}

	return token.AccessToken, nil
}
