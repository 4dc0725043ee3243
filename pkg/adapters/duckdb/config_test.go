package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr bool
	}{
		{
			name:  "nil params returns empty struct",
			input: nil,
			want:  &Params{},
		},
		{
			name: "extensions and settings",
			input: map[string]any{
				"extensions": []any{"json", "icu"},
				"settings": map[string]any{
					"threads": 4,
				},
			},
			want: &Params{
				Extensions: []string{"json", "icu"},
				Settings:   map[string]string{"threads": "4"},
			},
		},
		{
			name: "secret with scope list",
			input: map[string]any{
				"secrets": []any{
					map[string]any{
						"type":    "s3",
						"scope":   []any{"s3://a", "s3://b"},
						"use_ssl": false,
					},
				},
			},
			want: &Params{
				Secrets: []SecretConfig{{Type: "s3", Scope: []any{"s3://a", "s3://b"}, UseSSL: boolPtr(false)}},
			},
		},
		{
			name:    "unknown key",
			input:   map[string]any{"extension": "json"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildCreateSecretSQL(t *testing.T) {
	tests := []struct {
		name string
		cfg  SecretConfig
		want string
	}{
		{
			name: "type only",
			cfg:  SecretConfig{Type: "s3"},
			want: `CREATE SECRET (
    TYPE s3
)`,
		},
		{
			name: "credential chain with scopes",
			cfg: SecretConfig{
				Type:     "s3",
				Provider: "credential_chain",
				Region:   "eu-central-1",
				Scope:    []string{"s3://bucket1", "s3://bucket2"},
			},
			want: `CREATE SECRET (
    TYPE s3,
    PROVIDER credential_chain,
    REGION 'eu-central-1',
    SCOPE ('s3://bucket1', 's3://bucket2')
)`,
		},
		{
			name: "s3 compatible endpoint",
			cfg: SecretConfig{
				Type:     "s3",
				Provider: "config",
				KeyID:    "minio",
				Secret:   "it's",
				Endpoint: "localhost:9000",
				URLStyle: "path",
				UseSSL:   boolPtr(false),
			},
			want: `CREATE SECRET (
    TYPE s3,
    PROVIDER config,
    KEY_ID 'minio',
    SECRET 'it''s',
    ENDPOINT 'localhost:9000',
    URL_STYLE 'path',
    USE_SSL false
)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildCreateSecretSQL(tt.cfg))
		})
	}
}

func boolPtr(b bool) *bool {
	return &b
}
