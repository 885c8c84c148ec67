package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical bench defaults file.
// This is the single source of truth for all default simulation values.
const DefaultConfigPath = "config/bench.defaults.json"

// Config holds the simulation parameters for the optical bench. All fields
// are pointers so that partial JSON files are safe: omitted fields fall back
// to the defaults returned by the Get* accessors.
type Config struct {
	// Pupil and sampling params
	GridSize      *int     `json:"grid_size,omitempty"`
	PupilDiameter *float64 `json:"pupil_diameter,omitempty"` // meters
	Wavelength    *float64 `json:"wavelength,omitempty"`     // meters
	FocalLength   *float64 `json:"focal_length,omitempty"`   // meters
	FocalQ        *float64 `json:"focal_q,omitempty"`        // samples per lambda*f/D
	NumAiry       *float64 `json:"num_airy,omitempty"`       // focal-plane half width in airy radii

	// Telescope geometry
	ObscurationRatio *float64 `json:"obscuration_ratio,omitempty"`
	NumSpiders       *int     `json:"num_spiders,omitempty"`
	SpiderWidth      *float64 `json:"spider_width,omitempty"` // meters
	SegmentRings     *int     `json:"segment_rings,omitempty"`
	SegmentGap       *float64 `json:"segment_gap,omitempty"` // meters

	// Aberration params
	ZernikeRMS *float64 `json:"zernike_rms,omitempty"` // meters OPD
	PistonRMS  *float64 `json:"piston_rms,omitempty"`  // meters OPD

	// Detector params
	Frames       *int     `json:"frames,omitempty"`
	ExposureTime *float64 `json:"exposure_time,omitempty"` // seconds
	PhotonNoise  *bool    `json:"photon_noise,omitempty"`
	ReadNoise    *float64 `json:"read_noise,omitempty"`   // electrons RMS
	DarkCurrent  *float64 `json:"dark_current,omitempty"` // electrons/s
	FullWell     *float64 `json:"full_well,omitempty"`    // electrons
	SourceFlux   *float64 `json:"source_flux,omitempty"`  // photons/s total

	// Run params
	Seed      *int64  `json:"seed,omitempty"`
	OutputDir *string `json:"output_dir,omitempty"`
	DBPath    *string `json:"db_path,omitempty"`
}

// Empty returns a Config with all fields set to nil.
// Use Load to load actual values from a JSON file.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. The file is validated to have a
// .json extension and to be under the max file size. Fields omitted from
// the JSON retain their default values, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefault loads the canonical bench defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent
// directories. Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefault() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from internal/optics/*/
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are physically sensible.
func (c *Config) Validate() error {
	if c.GridSize != nil && *c.GridSize < 16 {
		return fmt.Errorf("grid_size must be at least 16, got %d", *c.GridSize)
	}
	if c.PupilDiameter != nil && *c.PupilDiameter <= 0 {
		return fmt.Errorf("pupil_diameter must be positive, got %g", *c.PupilDiameter)
	}
	if c.Wavelength != nil && *c.Wavelength <= 0 {
		return fmt.Errorf("wavelength must be positive, got %g", *c.Wavelength)
	}
	if c.FocalLength != nil && *c.FocalLength <= 0 {
		return fmt.Errorf("focal_length must be positive, got %g", *c.FocalLength)
	}
	if c.FocalQ != nil && *c.FocalQ < 1 {
		return fmt.Errorf("focal_q must be at least 1, got %g", *c.FocalQ)
	}
	if c.ObscurationRatio != nil && (*c.ObscurationRatio < 0 || *c.ObscurationRatio >= 1) {
		return fmt.Errorf("obscuration_ratio must be in [0, 1), got %g", *c.ObscurationRatio)
	}
	if c.Frames != nil && *c.Frames < 1 {
		return fmt.Errorf("frames must be at least 1, got %d", *c.Frames)
	}
	if c.ExposureTime != nil && *c.ExposureTime <= 0 {
		return fmt.Errorf("exposure_time must be positive, got %g", *c.ExposureTime)
	}
	if c.SegmentRings != nil && *c.SegmentRings < 1 {
		return fmt.Errorf("segment_rings must be at least 1, got %d", *c.SegmentRings)
	}
	return nil
}

// GetGridSize returns the pupil grid size per side or the default.
func (c *Config) GetGridSize() int {
	if c.GridSize == nil {
		return 128
	}
	return *c.GridSize
}

// GetPupilDiameter returns the pupil diameter in meters or the default.
func (c *Config) GetPupilDiameter() float64 {
	if c.PupilDiameter == nil {
		return 1.0
	}
	return *c.PupilDiameter
}

// GetWavelength returns the wavelength in meters or the default (1 micron).
func (c *Config) GetWavelength() float64 {
	if c.Wavelength == nil {
		return 1e-6
	}
	return *c.Wavelength
}

// GetFocalLength returns the focal length in meters or the default.
func (c *Config) GetFocalLength() float64 {
	if c.FocalLength == nil {
		return 10.0
	}
	return *c.FocalLength
}

// GetFocalQ returns the focal-plane sampling factor or the default.
func (c *Config) GetFocalQ() float64 {
	if c.FocalQ == nil {
		return 4.0
	}
	return *c.FocalQ
}

// GetNumAiry returns the focal-plane half width in airy radii or the default.
func (c *Config) GetNumAiry() float64 {
	if c.NumAiry == nil {
		return 16.0
	}
	return *c.NumAiry
}

// GetObscurationRatio returns the central obscuration ratio or the default.
func (c *Config) GetObscurationRatio() float64 {
	if c.ObscurationRatio == nil {
		return 0.2
	}
	return *c.ObscurationRatio
}

// GetNumSpiders returns the number of spider vanes or the default.
func (c *Config) GetNumSpiders() int {
	if c.NumSpiders == nil {
		return 4
	}
	return *c.NumSpiders
}

// GetSpiderWidth returns the spider vane width in meters or the default.
func (c *Config) GetSpiderWidth() float64 {
	if c.SpiderWidth == nil {
		return 0.01
	}
	return *c.SpiderWidth
}

// GetSegmentRings returns the number of hexagonal segment rings or the default.
func (c *Config) GetSegmentRings() int {
	if c.SegmentRings == nil {
		return 3
	}
	return *c.SegmentRings
}

// GetSegmentGap returns the inter-segment gap in meters or the default.
func (c *Config) GetSegmentGap() float64 {
	if c.SegmentGap == nil {
		return 0.005
	}
	return *c.SegmentGap
}

// GetZernikeRMS returns the injected Zernike OPD RMS in meters or the default.
func (c *Config) GetZernikeRMS() float64 {
	if c.ZernikeRMS == nil {
		return 0.1e-6
	}
	return *c.ZernikeRMS
}

// GetPistonRMS returns the per-segment piston RMS in meters or the default.
func (c *Config) GetPistonRMS() float64 {
	if c.PistonRMS == nil {
		return 0.05e-6
	}
	return *c.PistonRMS
}

// GetFrames returns the number of detector frames per measurement or the default.
func (c *Config) GetFrames() int {
	if c.Frames == nil {
		return 5
	}
	return *c.Frames
}

// GetExposureTime returns the per-frame exposure time in seconds or the default.
func (c *Config) GetExposureTime() float64 {
	if c.ExposureTime == nil {
		return 0.1
	}
	return *c.ExposureTime
}

// GetPhotonNoise returns whether photon noise is enabled or the default.
func (c *Config) GetPhotonNoise() bool {
	if c.PhotonNoise == nil {
		return true
	}
	return *c.PhotonNoise
}

// GetReadNoise returns the detector read noise in electrons RMS or the default.
func (c *Config) GetReadNoise() float64 {
	if c.ReadNoise == nil {
		return 2.0
	}
	return *c.ReadNoise
}

// GetDarkCurrent returns the dark current in electrons/s or the default.
func (c *Config) GetDarkCurrent() float64 {
	if c.DarkCurrent == nil {
		return 1.0
	}
	return *c.DarkCurrent
}

// GetFullWell returns the detector full-well depth in electrons or the default.
func (c *Config) GetFullWell() float64 {
	if c.FullWell == nil {
		return 1e9
	}
	return *c.FullWell
}

// GetSourceFlux returns the total source flux in photons/s or the default.
func (c *Config) GetSourceFlux() float64 {
	if c.SourceFlux == nil {
		return 1e8
	}
	return *c.SourceFlux
}

// GetSeed returns the RNG seed or the default.
func (c *Config) GetSeed() int64 {
	if c.Seed == nil {
		return 1
	}
	return *c.Seed
}

// GetOutputDir returns the plot/report output directory or the default.
func (c *Config) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return "plots"
	}
	return *c.OutputDir
}

// GetDBPath returns the run database path or the default.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "bench_runs.db"
	}
	return *c.DBPath
}
