// SPDX-License-Identifier: MIT

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskSecrets_AppConfig(t *testing.T) {
	cfg := Defaults()
	cfg.PSN.ClientToken = "c2VjcmV0"

	masked, ok := MaskSecrets(cfg).(map[string]any)
	require.True(t, ok)

	psn, ok := masked["psn"].(map[string]any)
	require.True(t, ok, "acronym section is lowered: %v", masked)
	assert.Equal(t, "***", psn["clientToken"])
	assert.Equal(t, cfg.PSN.TokenURL, psn["tokenURL"], "urls are not secrets")
	assert.Equal(t, ":8080", masked["listen"])

	hosts, ok := masked["media"].(map[string]any)["allowedHosts"].([]any)
	require.True(t, ok)
	assert.Len(t, hosts, len(cfg.Media.AllowedHosts))
}

func TestMaskSecrets_EmptySecretStaysEmpty(t *testing.T) {
	masked := MaskSecrets(PSNConfig{}).(map[string]any)
	assert.Equal(t, "", masked["clientToken"])
}

func TestMaskSecrets_Maps(t *testing.T) {
	input := map[string]any{
		"npsso":  "abc",
		"cookie": "CloudFront-Policy=x",
		"nested": map[string]any{"refresh_token": "r", "host": "example.com"},
	}

	masked := MaskSecrets(input).(map[string]any)
	assert.Equal(t, "***", masked["npsso"])
	assert.Equal(t, "***", masked["cookie"])
	nested := masked["nested"].(map[string]any)
	assert.Equal(t, "***", nested["refresh_token"])
	assert.Equal(t, "example.com", nested["host"])
}

func TestMaskSecrets_Nil(t *testing.T) {
	assert.Nil(t, MaskSecrets(nil))
	var p *AppConfig
	assert.Nil(t, MaskSecrets(p))
}
