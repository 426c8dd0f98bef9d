package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/stabilizer/internal/video/l1image"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	t.Parallel()
	c := EmptyStabilizeConfig()
	assert.Equal(t, 5, c.GetWindowSize())
	assert.Equal(t, 5, c.GetMaxIter())
	assert.Equal(t, 5, c.GetNumLevels())
	assert.Equal(t, SolverDense, c.GetSolver())
	assert.Equal(t, 0, c.GetWorkers())
	assert.Equal(t, 0, c.GetMinLevelWindows())
	assert.False(t, c.GetExtendBorder())
	assert.Equal(t, 0.01, c.GetCornerThreshold())
	assert.Equal(t, l1image.Margins{}, c.GetCrop())
	assert.Equal(t, 0, c.GetOutputWidth())
	assert.Equal(t, 0, c.GetOutputHeight())
	assert.Equal(t, 64, c.GetSampleBatchSize())
	assert.NoError(t, c.Validate())
}

func TestDefaultsFileMatchesAccessors(t *testing.T) {
	t.Parallel()
	fromFile := MustLoadDefaultConfig()
	if diff := cmp.Diff(DefaultStabilizeConfig(), fromFile); diff != "" {
		t.Errorf("%s disagrees with the Get* defaults (-code +file):\n%s", DefaultConfigPath, diff)
	}
}

func TestLoadStabilizeConfig_Partial(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "partial.json", `{
  "window_size": 7,
  "solver": "corner",
  "crop": {"top": 4, "bottom": 4},
  "output_width": 320,
  "output_height": 240,
  "min_level_windows": 3,
  "extend_border": true
}`)

	c, err := LoadStabilizeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, c.GetWindowSize())
	assert.Equal(t, SolverCorner, c.GetSolver())
	assert.Equal(t, l1image.Margins{Top: 4, Bottom: 4}, c.GetCrop())
	assert.Equal(t, 320, c.GetOutputWidth())
	assert.Equal(t, 240, c.GetOutputHeight())
	assert.Equal(t, 3, c.GetMinLevelWindows())
	assert.True(t, c.GetExtendBorder())

	// Omitted fields fall back to defaults.
	assert.Nil(t, c.MaxIter)
	assert.Equal(t, 5, c.GetMaxIter())
	assert.Equal(t, 5, c.GetNumLevels())
}

func TestLoadStabilizeConfig_Errors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name, file, body, want string
	}{
		{"extension", "c.yaml", `{}`, ".json extension"},
		{"syntax", "c.json", `{"window_size":`, "parse config JSON"},
		{"even window", "c.json", `{"window_size": 4}`, "window_size must be odd"},
		{"tiny window", "c.json", `{"window_size": 1}`, "window_size must be odd"},
		{"iterations", "c.json", `{"max_iter": 0}`, "max_iter"},
		{"levels", "c.json", `{"num_levels": -1}`, "num_levels"},
		{"deep levels", "c.json", `{"num_levels": 17}`, "num_levels"},
		{"solver", "c.json", `{"solver": "sparse"}`, "solver must be"},
		{"workers", "c.json", `{"workers": -2}`, "workers"},
		{"min level windows", "c.json", `{"min_level_windows": -1}`, "min_level_windows"},
		{"threshold", "c.json", `{"corner_threshold": 0}`, "corner_threshold"},
		{"crop", "c.json", `{"crop": {"left": -1}}`, "crop margins"},
		{"output half set", "c.json", `{"output_width": 100}`, "set together"},
		{"output negative", "c.json", `{"output_width": -1, "output_height": 5}`, "non-negative"},
		{"batch", "c.json", `{"sample_batch_size": 0}`, "sample_batch_size"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadStabilizeConfig(writeConfig(t, tc.file, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadStabilizeConfig_MissingAndLarge(t *testing.T) {
	t.Parallel()
	_, err := LoadStabilizeConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "stat config file")

	big := `{"solver": "dense", "pad": "` + strings.Repeat("x", 1<<20) + `"}`
	_, err = LoadStabilizeConfig(writeConfig(t, "big.json", big))
	assert.ErrorContains(t, err, "too large")
}
