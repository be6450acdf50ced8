package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gla14/internal/fsutil"
	"github.com/banshee-data/gla14/internal/gla14/layout"
	"github.com/banshee-data/gla14/internal/gla14/quality"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultsFileMatchesBuiltins(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	assert.Nil(t, cfg.SNRMin, "snr_min must stay per-layout")
	for _, v := range []layout.Version{layout.Legacy, layout.Release33} {
		assert.Equal(t, quality.DefaultThresholds(v), cfg.Thresholds(v), v.String())
	}
	assert.Equal(t, layout.Release33, cfg.GetLayout())
	assert.Equal(t, 0, cfg.GetWorkers())
}

func TestEmptyConfigKeepsLayoutDefaults(t *testing.T) {
	cfg := EmptyQualityConfig()
	assert.Equal(t, int64(quality.LEGACY_SNR_MIN), cfg.Thresholds(layout.Legacy).SNRMin)
	assert.Equal(t, int64(quality.R33_SNR_MIN), cfg.Thresholds(layout.Release33).SNRMin)
	assert.Equal(t, layout.Release33, cfg.GetLayout())
}

func TestLoadQualityConfigOverrides(t *testing.T) {
	path := writeConfig(t, "q.json", `{"layout": "legacy", "snr_min": 30, "gain_max": 150, "workers": 4}`)
	cfg, err := LoadQualityConfig(path)
	require.NoError(t, err)

	assert.Equal(t, layout.Legacy, cfg.GetLayout())
	assert.Equal(t, 4, cfg.GetWorkers())
	th := cfg.Thresholds(layout.Legacy)
	assert.Equal(t, int64(30), th.SNRMin)
	assert.Equal(t, uint16(150), th.GainMax)
	assert.Equal(t, uint16(quality.DEFAULT_LAND_FIT_MAX), th.LandFitMax)
}

func TestLoadQualityConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		want string
	}{
		{"extension", "q.yaml", `{}`, ".json extension"},
		{"syntax", "q.json", `{`, "failed to parse"},
		{"negative snr", "q.json", `{"snr_min": -1}`, "snr_min"},
		{"gain overflow", "q.json", `{"gain_max": 70000}`, "gain_max"},
		{"saturation nibble", "q.json", `{"saturation_max": 16}`, "saturation_max"},
		{"cloud", "q.json", `{"cloud_min": 300}`, "cloud_min"},
		{"workers", "q.json", `{"workers": -2}`, "workers"},
		{"layout", "q.json", `{"layout": "r34"}`, "r34"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadQualityConfig(writeConfig(t, tt.file, tt.body))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadQualityConfigTooLarge(t *testing.T) {
	body := `{"workers": 1` + strings.Repeat(" ", 1024*1024) + `}`
	_, err := LoadQualityConfig(writeConfig(t, "big.json", body))
	assert.ErrorContains(t, err, "too large")
}

func TestLoadQualityConfigMissing(t *testing.T) {
	_, err := LoadQualityConfig(filepath.Join(t.TempDir(), "none.json"))
	assert.ErrorContains(t, err, "failed to open")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadQualityConfigFS(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("quality.json", []byte(`{"layout":"legacy","gain_max":150}`))

	cfg, err := LoadQualityConfigFS(fsys, "./quality.json")
	require.NoError(t, err)
	assert.Equal(t, layout.Legacy, cfg.GetLayout())
	assert.EqualValues(t, 150, cfg.Thresholds(layout.Legacy).GainMax)

	fsys.WriteFile("big.json", []byte(`{}`+strings.Repeat(" ", 1024*1024)))
	_, err = LoadQualityConfigFS(fsys, "big.json")
	assert.ErrorContains(t, err, "too large")

	_, err = LoadQualityConfigFS(fsys, "none.json")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidateSetFields(t *testing.T) {
	cfg := &QualityConfig{SNRMin: ptrInt64(0), CloudMin: ptrInt(0), LandVarMax: ptrInt(65535)}
	require.NoError(t, cfg.Validate())

	cfg.LandVarMax = ptrInt(-1)
	assert.ErrorContains(t, cfg.Validate(), "land_var_max")
}
