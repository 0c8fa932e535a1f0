// Package gcp resolves how CampusPrint services authenticate to Google Cloud.
package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/campusprint/campusprint-backend/pkg/config"
)

// ClientOptions prefers inline JSON credentials over a credentials file. With
// neither set the client libraries fall back to application default
// credentials, which is what Cloud Run provides.
func ClientOptions(cfg config.GCPConfig, scopes ...string) []option.ClientOption {
	var opts []option.ClientOption
	if inline := strings.TrimSpace(cfg.CredentialsJSON); inline != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(inline)))
	} else if path := strings.TrimSpace(cfg.ApplicationCredentials); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	if len(scopes) > 0 {
		opts = append(opts, option.WithScopes(scopes...))
	}
	return opts
}
