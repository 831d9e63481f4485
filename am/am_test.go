package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/GLAO/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "glao.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, "opd", cfg.Source.Array)
	assert.Equal(t, "<f8", cfg.Source.DType)
	assert.Equal(t, BasisZernike, cfg.Basis.Family)
	assert.Equal(t, 500, cfg.Basis.Modes)
	assert.Equal(t, 2, cfg.Basis.StartMode)
	assert.True(t, cfg.Basis.Normalize)
	assert.Equal(t, 1e8, cfg.Basis.CondThreshold)
	assert.Equal(t, 0, cfg.Pipeline.Workers)
	assert.Equal(t, "abort", cfg.Pipeline.FramePolicy)
	assert.Equal(t, "m", cfg.Budget.Unit)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
[source]
locator = "/data/cfd/run42"
rows = 512
cols = 512

[basis]
family = "file"
path = "/data/basis/kl500.npz"
modes = 500

[pipeline]
workers = 8
frame_policy = "skip"

[budget]
unit = "m"

[[budget.contributors]]
name = "dome seeing"
study = "residual"

[[budget.contributors]]
name = "windshake"
array = "opd_wind"
study = "raw"
correlation_tag = "structural"

[[budget.contributors]]
name = "mount vibration"
study = "raw"
correlation_tag = "structural"
rho = 0.4
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/data/cfd/run42", cfg.Source.Locator)
	assert.Equal(t, 512, cfg.Source.Rows)
	assert.Equal(t, BasisFile, cfg.Basis.Family)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, "skip", cfg.Pipeline.FramePolicy)

	require.Len(t, cfg.Budget.Contributors, 3)
	wind := cfg.Budget.Contributors[1]
	assert.Equal(t, "windshake", wind.Name)
	assert.Equal(t, "opd_wind", wind.EffectiveArray(cfg.Source))
	assert.Equal(t, "/data/cfd/run42", wind.EffectiveLocator(cfg.Source))
	assert.Equal(t, "structural", wind.Tag)
	assert.Equal(t, 0.4, cfg.Budget.Contributors[2].Rho)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidateBasisFamily(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	cfg.Basis.Family = "fourier"
	assert.Error(t, cfg.Validate())

	cfg.Basis.Family = BasisFile
	cfg.Basis.Path = ""
	assert.Error(t, cfg.Validate())

	cfg.Basis.Family = BasisZernike
	cfg.Basis.StartMode = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateDuplicateContributor(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	cfg.Source.Locator = "/data"
	cfg.Budget.Contributors = []ContributorConfig{
		{Name: "dome seeing"},
		{Name: "dome seeing"},
	}
	err = cfg.Validate()
	assert.True(t, errors.Is(err, errors.ErrDuplicateContributor))
}

func TestValidateUnpartneredTag(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	cfg.Source.Locator = "/data"
	cfg.Budget.Contributors = []ContributorConfig{
		{Name: "a", Tag: "thermal"},
		{Name: "b"},
	}
	err = cfg.Validate()
	assert.True(t, errors.Is(err, errors.ErrUnknownCorrelationTag))
}

func TestValidateContributorWithoutLocator(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	cfg.Budget.Contributors = []ContributorConfig{{Name: "a"}}
	assert.Error(t, cfg.Validate())

	cfg.Budget.Contributors[0].Locator = "/data/special"
	assert.NoError(t, cfg.Validate())
}

func TestValidateFramePolicy(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	cfg.Pipeline.FramePolicy = "retry"
	assert.Error(t, cfg.Validate())
}

func TestReset(t *testing.T) {
	defer Reset()
	_, err := Load()
	require.NoError(t, err)
	require.NotNil(t, globalConfig)
	Reset()
	assert.Nil(t, globalConfig)
}
