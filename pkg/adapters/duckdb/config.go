package duckdb

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds DuckDB-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// Extensions to install and load (e.g., "json", "icu")
	Extensions []string `mapstructure:"extensions"`

	// Secrets for attached remote storage
	Secrets []SecretConfig `mapstructure:"secrets"`

	// Settings to apply at session level (e.g., memory_limit, threads)
	Settings map[string]string `mapstructure:"settings"`
}

// SecretConfig defines a DuckDB secret.
type SecretConfig struct {
	// Type: "s3", "gcs", "azure", "r2", "huggingface"
	Type string `mapstructure:"type"`

	// Provider: "config", "credential_chain", "service_account", etc.
	Provider string `mapstructure:"provider"`

	Region string `mapstructure:"region,omitempty"`

	// Scope limits the secret to specific paths (string or []string)
	Scope any `mapstructure:"scope,omitempty"`

	KeyID    string `mapstructure:"key_id,omitempty"`
	Secret   string `mapstructure:"secret,omitempty"`
	Endpoint string `mapstructure:"endpoint,omitempty"`

	// URLStyle: "vhost" or "path" for S3
	URLStyle string `mapstructure:"url_style,omitempty"`

	UseSSL *bool `mapstructure:"use_ssl,omitempty"`
}

func parseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid duckdb params: %w", err)
	}
	return p, nil
}

func buildCreateSecretSQL(s SecretConfig) string {
	parts := []string{"TYPE " + s.Type}
	if s.Provider != "" {
		parts = append(parts, "PROVIDER "+s.Provider)
	}
	if s.Region != "" {
		parts = append(parts, "REGION "+quote(s.Region))
	}
	if scope := scopeLiteral(s.Scope); scope != "" {
		parts = append(parts, "SCOPE "+scope)
	}
	if s.KeyID != "" {
		parts = append(parts, "KEY_ID "+quote(s.KeyID))
	}
	if s.Secret != "" {
		parts = append(parts, "SECRET "+quote(s.Secret))
	}
	if s.Endpoint != "" {
		parts = append(parts, "ENDPOINT "+quote(s.Endpoint))
	}
	if s.URLStyle != "" {
		parts = append(parts, "URL_STYLE "+quote(s.URLStyle))
	}
	if s.UseSSL != nil {
		parts = append(parts, fmt.Sprintf("USE_SSL %t", *s.UseSSL))
	}
	return "CREATE SECRET (\n    " + strings.Join(parts, ",\n    ") + "\n)"
}

func scopeLiteral(scope any) string {
	var items []string
	switch v := scope.(type) {
	case nil:
		return ""
	case string:
		return quote(v)
	case []string:
		items = v
	case []any:
		for _, s := range v {
			items = append(items, fmt.Sprint(s))
		}
	default:
		return quote(fmt.Sprint(v))
	}
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = quote(s)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
