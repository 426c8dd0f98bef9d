package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/stabilizer/internal/video/l1image"
)

// DefaultConfigPath is the path to the canonical stabilizer defaults file.
const DefaultConfigPath = "config/stabilize.defaults.json"

// Solver names accepted in the solver field.
const (
	SolverDense  = "dense"
	SolverCorner = "corner"
)

// maxNumLevels bounds num_levels; deeper pyramids of any real frame are 1×1.
const maxNumLevels = 16

// StabilizeConfig holds the stabilizer parameters. Fields omitted from the
// JSON stay nil and the Get* accessors return their defaults, so partial
// configs are safe.
type StabilizeConfig struct {
	// Flow estimation
	WindowSize *int    `json:"window_size,omitempty"`
	MaxIter    *int    `json:"max_iter,omitempty"`
	NumLevels  *int    `json:"num_levels,omitempty"`
	Solver     *string `json:"solver,omitempty"` // "dense" or "corner"
	Workers    *int    `json:"workers,omitempty"`

	// Estimator refinements, off by default
	MinLevelWindows *int  `json:"min_level_windows,omitempty"` // skip coarse levels narrower than this many windows
	ExtendBorder    *bool `json:"extend_border,omitempty"`     // warp with border-band flow extended from the interior

	// Corner solver
	CornerThreshold *float64 `json:"corner_threshold,omitempty"` // fraction of the strongest Harris response

	// Output stage
	Crop         *l1image.Margins `json:"crop,omitempty"`
	OutputWidth  *int             `json:"output_width,omitempty"`
	OutputHeight *int             `json:"output_height,omitempty"`

	// Run log
	SampleBatchSize *int `json:"sample_batch_size,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrBool(v bool) *bool          { return &v }

// EmptyStabilizeConfig returns a StabilizeConfig with all fields set to nil.
func EmptyStabilizeConfig() *StabilizeConfig {
	return &StabilizeConfig{}
}

// DefaultStabilizeConfig returns a config with every field set to its
// default.
func DefaultStabilizeConfig() *StabilizeConfig {
	c := EmptyStabilizeConfig()
	crop := c.GetCrop()
	return &StabilizeConfig{
		WindowSize:      ptrInt(c.GetWindowSize()),
		MaxIter:         ptrInt(c.GetMaxIter()),
		NumLevels:       ptrInt(c.GetNumLevels()),
		Solver:          ptrString(c.GetSolver()),
		Workers:         ptrInt(c.GetWorkers()),
		MinLevelWindows: ptrInt(c.GetMinLevelWindows()),
		ExtendBorder:    ptrBool(c.GetExtendBorder()),
		CornerThreshold: ptrFloat64(c.GetCornerThreshold()),
		Crop:            &crop,
		OutputWidth:     ptrInt(c.GetOutputWidth()),
		OutputHeight:    ptrInt(c.GetOutputHeight()),
		SampleBatchSize: ptrInt(c.GetSampleBatchSize()),
	}
}

// LoadStabilizeConfig loads a StabilizeConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadStabilizeConfig(path string) (*StabilizeConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyStabilizeConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *StabilizeConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/video/lN*/
		"../../../../" + DefaultConfigPath, // from internal/video/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadStabilizeConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *StabilizeConfig) Validate() error {
	if c.WindowSize != nil {
		if w := *c.WindowSize; w < 3 || w%2 == 0 {
			return fmt.Errorf("window_size must be odd and at least 3, got %d", w)
		}
	}
	if c.MaxIter != nil && *c.MaxIter < 1 {
		return fmt.Errorf("max_iter must be at least 1, got %d", *c.MaxIter)
	}
	if c.NumLevels != nil {
		if n := *c.NumLevels; n < 0 || n > maxNumLevels {
			return fmt.Errorf("num_levels must be between 0 and %d, got %d", maxNumLevels, n)
		}
	}
	if c.Solver != nil {
		switch *c.Solver {
		case SolverDense, SolverCorner:
		default:
			return fmt.Errorf("solver must be %q or %q, got %q", SolverDense, SolverCorner, *c.Solver)
		}
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.MinLevelWindows != nil && *c.MinLevelWindows < 0 {
		return fmt.Errorf("min_level_windows must be non-negative, got %d", *c.MinLevelWindows)
	}
	if c.CornerThreshold != nil {
		if v := *c.CornerThreshold; v <= 0 || v > 1 {
			return fmt.Errorf("corner_threshold must be in (0, 1], got %g", v)
		}
	}
	if c.Crop != nil {
		m := *c.Crop
		if m.Top < 0 || m.Left < 0 || m.Bottom < 0 || m.Right < 0 {
			return fmt.Errorf("crop margins must be non-negative, got %+v", m)
		}
	}
	ow, oh := c.GetOutputWidth(), c.GetOutputHeight()
	if ow < 0 || oh < 0 {
		return fmt.Errorf("output size must be non-negative, got %dx%d", ow, oh)
	}
	if (ow == 0) != (oh == 0) {
		return fmt.Errorf("output_width and output_height must be set together, got %dx%d", ow, oh)
	}
	if c.SampleBatchSize != nil && *c.SampleBatchSize < 1 {
		return fmt.Errorf("sample_batch_size must be at least 1, got %d", *c.SampleBatchSize)
	}
	return nil
}

// GetWindowSize returns the window_size value or the default.
func (c *StabilizeConfig) GetWindowSize() int {
	if c.WindowSize == nil {
		return 5
	}
	return *c.WindowSize
}

// GetMaxIter returns the max_iter value or the default.
func (c *StabilizeConfig) GetMaxIter() int {
	if c.MaxIter == nil {
		return 5
	}
	return *c.MaxIter
}

// GetNumLevels returns the num_levels value or the default.
func (c *StabilizeConfig) GetNumLevels() int {
	if c.NumLevels == nil {
		return 5
	}
	return *c.NumLevels
}

// GetSolver returns the solver value or the default.
func (c *StabilizeConfig) GetSolver() string {
	if c.Solver == nil || *c.Solver == "" {
		return SolverDense
	}
	return *c.Solver
}

// GetWorkers returns the workers value or the default (0: one per CPU).
func (c *StabilizeConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetMinLevelWindows returns the min_level_windows value or the default
// (0: refine every pyramid level).
func (c *StabilizeConfig) GetMinLevelWindows() int {
	if c.MinLevelWindows == nil {
		return 0
	}
	return *c.MinLevelWindows
}

// GetExtendBorder returns the extend_border value or the default.
func (c *StabilizeConfig) GetExtendBorder() bool {
	if c.ExtendBorder == nil {
		return false
	}
	return *c.ExtendBorder
}

// GetCornerThreshold returns the corner_threshold value or the default.
func (c *StabilizeConfig) GetCornerThreshold() float64 {
	if c.CornerThreshold == nil {
		return 0.01
	}
	return *c.CornerThreshold
}

// GetCrop returns the crop margins (zero when unset).
func (c *StabilizeConfig) GetCrop() l1image.Margins {
	if c.Crop == nil {
		return l1image.Margins{}
	}
	return *c.Crop
}

// GetOutputWidth returns the output_width value; 0 keeps the input width.
func (c *StabilizeConfig) GetOutputWidth() int {
	if c.OutputWidth == nil {
		return 0
	}
	return *c.OutputWidth
}

// GetOutputHeight returns the output_height value; 0 keeps the input height.
func (c *StabilizeConfig) GetOutputHeight() int {
	if c.OutputHeight == nil {
		return 0
	}
	return *c.OutputHeight
}

// GetSampleBatchSize returns the sample_batch_size value or the default.
func (c *StabilizeConfig) GetSampleBatchSize() int {
	if c.SampleBatchSize == nil {
		return 64
	}
	return *c.SampleBatchSize
}
