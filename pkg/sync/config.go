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

package sync

import (
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/chromesync/pkg/db"
	"github.com/carverauto/chromesync/pkg/directory"
	"github.com/carverauto/chromesync/pkg/logger"
	"github.com/carverauto/chromesync/pkg/models"
	"github.com/carverauto/chromesync/pkg/version"
)

const (
	defaultAdminEmailConstant          = "google_dlp_admin_email"
	defaultServiceAccountEmailConstant = "google_dlp_app_email"
)

var (
	ErrConfigurationMissing = errors.New("configuration missing")

	errInvalidPageSize    = errors.New("directory.page_size must be between 1 and 300")
	errInvalidMaxAttempts = errors.New("directory.max_attempts must be positive")
	errInvalidRate        = errors.New("directory.requests_per_second must not be negative")
)

// Config is the full chromesync configuration document.
type Config struct {
	Directory   DirectoryConfig        `json:"directory"`
	Credentials CredentialsConfig      `json:"credentials"`
	Database    *models.DatabaseConfig `json:"database"`
	Loader      db.LoaderConfig        `json:"loader"`
	Constants   ConstantsConfig        `json:"constants"`
	Metrics     MetricsConfig          `json:"metrics"`
	Logging     *logger.Config         `json:"logging"`

	// DryRun is set from the command line, never from the document.
	DryRun bool `json:"-"`
}

// DirectoryConfig covers the device list query and request retry policy.
type DirectoryConfig struct {
	Endpoint          string          `json:"endpoint"`
	Customer          string          `json:"customer"`
	PageSize          int             `json:"page_size"`
	MaxAttempts       int             `json:"max_attempts"`
	RequestTimeout    models.Duration `json:"request_timeout"`
	BaseBackoff       models.Duration `json:"base_backoff"`
	RateLimitMarker   string          `json:"rate_limit_marker"`
	RequestsPerSecond float64         `json:"requests_per_second"`
	TracePages        bool            `json:"trace_pages"`
}

// CredentialsConfig locates the service account key. Empty identities are
// resolved from the constants table at startup.
type CredentialsConfig struct {
	KeyFile             string   `json:"key_file"`
	KeyPassword         string   `json:"key_password"`
	AdminEmail          string   `json:"admin_email"`
	ServiceAccountEmail string   `json:"service_account_email"`
	Scopes              []string `json:"scopes"`
	TokenURL            string   `json:"token_url"`
}

// ConstantsConfig names the table and keys holding the Google identities.
type ConstantsConfig struct {
	Table                  string `json:"table"`
	AdminEmailKey          string `json:"admin_email_key"`
	ServiceAccountEmailKey string `json:"service_account_email_key"`
}

// MetricsConfig controls the end-of-run metrics export.
type MetricsConfig struct {
	TextfilePath string `json:"textfile_path"`
}

// Validate fills defaults and rejects incomplete configurations.
func (c *Config) Validate() error {
	c.applyDefaults()

	if c.Credentials.KeyFile == "" {
		return fmt.Errorf("%w: credentials.key_file", ErrConfigurationMissing)
	}

	if c.NeedsDatabase() && (c.Database == nil || c.Database.Host == "" || c.Database.Database == "") {
		return fmt.Errorf("%w: database.host and database.database", ErrConfigurationMissing)
	}

	if c.Directory.PageSize < 1 || c.Directory.PageSize > directory.DefaultPageSize {
		return errInvalidPageSize
	}

	if c.Directory.MaxAttempts < 1 {
		return errInvalidMaxAttempts
	}

	if c.Directory.RequestsPerSecond < 0 {
		return errInvalidRate
	}

	if c.Loader.BulkMode != db.BulkModeCopy && c.Loader.BulkMode != db.BulkModeBatch {
		return fmt.Errorf("%w: %q", db.ErrInvalidBulkMode, c.Loader.BulkMode)
	}

	return nil
}

// NeedsDatabase reports whether the run opens a database connection. A dry
// run with a configured admin email reads nothing from the constants table
// and loads nothing.
func (c *Config) NeedsDatabase() bool {
	return !c.DryRun || c.Credentials.AdminEmail == ""
}

func (c *Config) applyDefaults() {
	d := &c.Directory

	if d.Endpoint == "" {
		d.Endpoint = directory.DefaultEndpoint
	}

	if d.Customer == "" {
		d.Customer = directory.DefaultCustomer
	}

	if d.PageSize == 0 {
		d.PageSize = directory.DefaultPageSize
	}

	if d.MaxAttempts == 0 {
		d.MaxAttempts = directory.DefaultMaxAttempts
	}

	if d.RequestTimeout == 0 {
		d.RequestTimeout = models.Duration(directory.DefaultRequestTimeout)
	}

	if d.BaseBackoff == 0 {
		d.BaseBackoff = models.Duration(directory.DefaultBaseBackoff)
	}

	if d.RateLimitMarker == "" {
		d.RateLimitMarker = directory.DefaultRateLimitMarker
	}

	if c.Loader.StagingTable == "" {
		c.Loader.StagingTable = db.DefaultStagingTable
	}

	if c.Loader.FinalizeProcedure == "" {
		c.Loader.FinalizeProcedure = db.DefaultFinalizeProcedure
	}

	if c.Loader.BulkMode == "" {
		c.Loader.BulkMode = db.BulkModeCopy
	}

	if c.Loader.BatchSize <= 0 {
		c.Loader.BatchSize = db.DefaultBatchSize
	}

	if c.Constants.Table == "" {
		c.Constants.Table = db.DefaultConstantsTable
	}

	if c.Constants.AdminEmailKey == "" {
		c.Constants.AdminEmailKey = defaultAdminEmailConstant
	}

	if c.Constants.ServiceAccountEmailKey == "" {
		c.Constants.ServiceAccountEmailKey = defaultServiceAccountEmailConstant
	}
}

// ExecutorConfig converts the directory section for directory.NewExecutor.
func (c *Config) ExecutorConfig() directory.ExecutorConfig {
	return directory.ExecutorConfig{
		MaxAttempts:       c.Directory.MaxAttempts,
		RequestTimeout:    time.Duration(c.Directory.RequestTimeout),
		BaseBackoff:       time.Duration(c.Directory.BaseBackoff),
		RateLimitMarker:   c.Directory.RateLimitMarker,
		RequestsPerSecond: c.Directory.RequestsPerSecond,
	}
}

// CollectorConfig converts the directory section for directory.NewCollector.
func (c *Config) CollectorConfig() directory.CollectorConfig {
	return directory.CollectorConfig{
		Endpoint:   c.Directory.Endpoint,
		Customer:   c.Directory.Customer,
		PageSize:   c.Directory.PageSize,
		TracePages: c.Directory.TracePages,
		UserAgent:  version.UserAgent(),
	}
}

// GoogleCredentials converts the credentials section for
// directory.NewGoogleTokenProvider.
func (c *Config) GoogleCredentials() directory.GoogleCredentials {
	return directory.GoogleCredentials{
		KeyFile:             c.Credentials.KeyFile,
		KeyPassword:         c.Credentials.KeyPassword,
		AdminEmail:          c.Credentials.AdminEmail,
		ServiceAccountEmail: c.Credentials.ServiceAccountEmail,
		Scopes:              c.Credentials.Scopes,
		TokenURL:            c.Credentials.TokenURL,
	}
}
