package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autometa/internal/engine"
	"autometa/internal/pool"
)

func testViper(overrides map[string]any) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.Set("input_dir", "/in")
	v.Set("output_dir", "/out")
	v.Set("api_keys", []string{"k1", "k2", "k3"})
	for key, val := range overrides {
		v.Set(key, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(testViper(nil))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Workers, "one worker per key by default")
	assert.Equal(t, DefaultBaseDelay, cfg.BaseDelay)
	assert.Equal(t, DefaultKeywordCap, cfg.KeywordCap)
	assert.True(t, cfg.AutoRetry)
	assert.True(t, cfg.EmbedMetadata)
	assert.Empty(t, cfg.Model, "automatic model rotation by default")
	assert.NotEmpty(t, cfg.Models)
}

func TestFromViper_RequiresAPIKeys(t *testing.T) {
	_, err := FromViper(testViper(map[string]any{"api_keys": []string{}}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestFromViper_RequiresDirectories(t *testing.T) {
	_, err := FromViper(testViper(map[string]any{"input_dir": ""}))
	assert.Error(t, err)

	_, err = FromViper(testViper(map[string]any{"output_dir": ""}))
	assert.Error(t, err)
}

func TestFromViper_WorkersClampedToKeysWithoutPaidAccess(t *testing.T) {
	cfg, err := FromViper(testViper(map[string]any{"workers": 20}))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
}

func TestFromViper_PaidAccessLiftsKeyCoupling(t *testing.T) {
	cfg, err := FromViper(testViper(map[string]any{"workers": 20, "paid": true}))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Workers)
}

func TestFromViper_WorkersNeverExceedCeiling(t *testing.T) {
	cfg, err := FromViper(testViper(map[string]any{"workers": 500, "paid": true}))
	require.NoError(t, err)
	assert.Equal(t, engine.MaxWorkers, cfg.Workers)
}

func TestFromViper_KeywordCapClamped(t *testing.T) {
	cfg, err := FromViper(testViper(map[string]any{"keyword_cap": 3}))
	require.NoError(t, err)
	assert.Equal(t, MinKeywordCap, cfg.KeywordCap)

	cfg, err = FromViper(testViper(map[string]any{"keyword_cap": 200}))
	require.NoError(t, err)
	assert.Equal(t, MaxKeywordCap, cfg.KeywordCap)
}

func TestFromViper_UnknownFixedModel(t *testing.T) {
	_, err := FromViper(testViper(map[string]any{"model": "no-such-model"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model")
}

func TestCredentialInterval(t *testing.T) {
	cfg, err := FromViper(testViper(nil))
	require.NoError(t, err)
	assert.Equal(t, pool.DefaultCredentialInterval, cfg.CredentialInterval())

	paid, err := FromViper(testViper(map[string]any{"paid": true}))
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), paid.CredentialInterval())
}

func TestCredentials(t *testing.T) {
	cfg, err := FromViper(testViper(map[string]any{"paid": true}))
	require.NoError(t, err)

	creds := cfg.Credentials()
	require.Len(t, creds, 3)
	assert.Equal(t, "k1", creds[0].Key)
	assert.True(t, creds[0].Paid)
}
