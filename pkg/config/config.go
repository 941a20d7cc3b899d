package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mslinn/simsnap/pkg/capture"
	"github.com/mslinn/simsnap/pkg/device"
)

// EnvFile is read from the working directory when present.
const EnvFile = ".simsnap.env"

// Config represents the simsnap configuration
type Config struct {
	DatabasePath string        `yaml:"database"`
	BaselineDir  string        `yaml:"baselines"`
	ResultsDir   string        `yaml:"results"`
	Device       string        `yaml:"device"`
	Tolerance    float64       `yaml:"tolerance"`
	LogLevel     string        `yaml:"log_level"`
	Update       bool          `yaml:"update"`
	Capture      CaptureConfig `yaml:"capture"`
}

// CaptureConfig is the file form of capture.Config. Times are in seconds.
type CaptureConfig struct {
	ScreenWidth        float64      `yaml:"screen_width"`
	ScreenHeight       float64      `yaml:"screen_height"`
	PixelScale         float64      `yaml:"pixel_scale"`
	DefaultCenter      device.Point `yaml:"default_center"`
	ScrollDistance     float64      `yaml:"scroll_distance"`
	TestScrollDistance float64      `yaml:"test_scroll_distance"`
	SwipeDuration      float64      `yaml:"swipe_duration"`
	SettleDelay        float64      `yaml:"settle_delay"`
	MaxScrolls         int          `yaml:"max_scrolls"`
	MaxScrollToTop     int          `yaml:"max_scroll_to_top"`
	Stitch             bool         `yaml:"stitch"`
	EdgeTap            bool         `yaml:"edge_tap"`
	OverlapCheck       bool         `yaml:"overlap_check"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	root := "simsnap"
	if homeDir, err := os.UserHomeDir(); err == nil {
		root = filepath.Join(homeDir, "simsnap")
	}

	c := capture.DefaultConfig()
	return &Config{
		DatabasePath: filepath.Join(root, "simsnap.db"),
		BaselineDir:  "baselines",
		ResultsDir:   "results",
		Device:       "booted",
		Tolerance:    0,
		LogLevel:     "info",
		Capture: CaptureConfig{
			ScreenWidth:        c.ScreenWidth,
			ScreenHeight:       c.ScreenHeight,
			PixelScale:         c.PixelScale,
			DefaultCenter:      c.DefaultCenter,
			ScrollDistance:     c.ScrollDistance,
			TestScrollDistance: c.TestScrollDistance,
			SwipeDuration:      c.SwipeDuration.Seconds(),
			SettleDelay:        c.SettleDelay.Seconds(),
			MaxScrolls:         c.MaxScrolls,
			MaxScrollToTop:     c.MaxScrollToTop,
			Stitch:             c.Stitch,
			EdgeTap:            c.EdgeTap,
			OverlapCheck:       c.OverlapCheck,
		},
	}
}

// Load loads configuration from file, the dotenv file and environment variables
// Priority: environment variables > .simsnap.env > config file > defaults
func Load() (*Config, error) {
	dotenv, err := readEnvFile(EnvFile)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}

	cfg := DefaultConfig()

	configPath := lookup("SIMSNAP_CONFIG")
	if configPath == "" {
		configPath = GetConfigPath()
	}
	if err := loadFromFile(cfg, configPath); err != nil {
		// Config file is optional, so we just skip if not found
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readEnvFile(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return vars, nil
}

func (cfg *Config) applyEnv(lookup func(string) string) error {
	if db := lookup("SIMSNAP_DB"); db != "" {
		cfg.DatabasePath = db
	}
	if dir := lookup("SIMSNAP_BASELINES"); dir != "" {
		cfg.BaselineDir = dir
	}
	if dir := lookup("SIMSNAP_RESULTS"); dir != "" {
		cfg.ResultsDir = dir
	}
	if udid := lookup("SIMSNAP_DEVICE"); udid != "" {
		cfg.Device = udid
	}
	if level := lookup("SIMSNAP_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if update := lookup("SIMSNAP_UPDATE"); update != "" {
		cfg.Update = update == "true" || update == "1"
	}
	if tol := lookup("SIMSNAP_TOLERANCE"); tol != "" {
		v, err := strconv.ParseFloat(tol, 64)
		if err != nil {
			return fmt.Errorf("invalid SIMSNAP_TOLERANCE %q: %w", tol, err)
		}
		cfg.Tolerance = v
	}
	return cfg.Validate()
}

// Validate rejects values the capture and compare code cannot use
func (cfg *Config) Validate() error {
	if cfg.Tolerance < 0 || cfg.Tolerance > 1 {
		return fmt.Errorf("tolerance %v must be within [0,1]", cfg.Tolerance)
	}
	return nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// Save saves the configuration to a file
func (cfg *Config) Save(path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	configPath := os.Getenv("SIMSNAP_CONFIG")
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			configPath = filepath.Join(homeDir, ".simsnap-config")
		} else {
			configPath = ".simsnap-config"
		}
	}
	return configPath
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}

// GetDatabasePath returns the database path, expanding ~/ if needed
func (cfg *Config) GetDatabasePath() string {
	return expandHome(cfg.DatabasePath)
}

// GetBaselineDir returns the baseline directory, expanding ~/ if needed
func (cfg *Config) GetBaselineDir() string {
	return expandHome(cfg.BaselineDir)
}

// GetResultsDir returns the results directory, expanding ~/ if needed
func (cfg *Config) GetResultsDir() string {
	return expandHome(cfg.ResultsDir)
}

// ToCaptureConfig converts the capture block for the capture driver
func (cfg *Config) ToCaptureConfig() capture.Config {
	c := capture.DefaultConfig()
	cc := cfg.Capture

	c.ScreenWidth = cc.ScreenWidth
	c.ScreenHeight = cc.ScreenHeight
	c.PixelScale = cc.PixelScale
	c.DefaultCenter = cc.DefaultCenter
	c.ScrollDistance = cc.ScrollDistance
	c.TestScrollDistance = cc.TestScrollDistance
	c.MaxScrolls = cc.MaxScrolls
	c.MaxScrollToTop = cc.MaxScrollToTop
	c.Stitch = cc.Stitch
	c.EdgeTap = cc.EdgeTap
	c.OverlapCheck = cc.OverlapCheck
	if cc.SwipeDuration > 0 {
		c.SwipeDuration = time.Duration(cc.SwipeDuration * float64(time.Second))
	}
	if cc.SettleDelay >= 0 {
		c.SettleDelay = time.Duration(cc.SettleDelay * float64(time.Second))
	}
	return c
}

// Keys lists the dotted keys accepted by Get and Set
var Keys = []string{
	"database", "baselines", "results", "device", "tolerance", "log_level", "update",
	"capture.screen_width", "capture.screen_height", "capture.pixel_scale",
	"capture.scroll_distance", "capture.swipe_duration", "capture.settle_delay",
	"capture.max_scrolls", "capture.stitch", "capture.edge_tap", "capture.overlap_check",
}

// Get returns the value of one key as text
func (cfg *Config) Get(key string) (string, error) {
	switch key {
	case "database":
		return cfg.DatabasePath, nil
	case "baselines":
		return cfg.BaselineDir, nil
	case "results":
		return cfg.ResultsDir, nil
	case "device":
		return cfg.Device, nil
	case "tolerance":
		return strconv.FormatFloat(cfg.Tolerance, 'g', -1, 64), nil
	case "log_level":
		return cfg.LogLevel, nil
	case "update":
		return strconv.FormatBool(cfg.Update), nil
	case "capture.screen_width":
		return strconv.FormatFloat(cfg.Capture.ScreenWidth, 'g', -1, 64), nil
	case "capture.screen_height":
		return strconv.FormatFloat(cfg.Capture.ScreenHeight, 'g', -1, 64), nil
	case "capture.pixel_scale":
		return strconv.FormatFloat(cfg.Capture.PixelScale, 'g', -1, 64), nil
	case "capture.scroll_distance":
		return strconv.FormatFloat(cfg.Capture.ScrollDistance, 'g', -1, 64), nil
	case "capture.swipe_duration":
		return strconv.FormatFloat(cfg.Capture.SwipeDuration, 'g', -1, 64), nil
	case "capture.settle_delay":
		return strconv.FormatFloat(cfg.Capture.SettleDelay, 'g', -1, 64), nil
	case "capture.max_scrolls":
		return strconv.Itoa(cfg.Capture.MaxScrolls), nil
	case "capture.stitch":
		return strconv.FormatBool(cfg.Capture.Stitch), nil
	case "capture.edge_tap":
		return strconv.FormatBool(cfg.Capture.EdgeTap), nil
	case "capture.overlap_check":
		return strconv.FormatBool(cfg.Capture.OverlapCheck), nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

// Set parses value into one key
func (cfg *Config) Set(key, value string) error {
	var err error
	switch key {
	case "database":
		cfg.DatabasePath = value
	case "baselines":
		cfg.BaselineDir = value
	case "results":
		cfg.ResultsDir = value
	case "device":
		cfg.Device = value
	case "tolerance":
		cfg.Tolerance, err = strconv.ParseFloat(value, 64)
		if err == nil {
			err = cfg.Validate()
		}
	case "log_level":
		cfg.LogLevel = value
	case "update":
		cfg.Update, err = strconv.ParseBool(value)
	case "capture.screen_width":
		cfg.Capture.ScreenWidth, err = strconv.ParseFloat(value, 64)
	case "capture.screen_height":
		cfg.Capture.ScreenHeight, err = strconv.ParseFloat(value, 64)
	case "capture.pixel_scale":
		cfg.Capture.PixelScale, err = strconv.ParseFloat(value, 64)
	case "capture.scroll_distance":
		cfg.Capture.ScrollDistance, err = strconv.ParseFloat(value, 64)
	case "capture.swipe_duration":
		cfg.Capture.SwipeDuration, err = strconv.ParseFloat(value, 64)
	case "capture.settle_delay":
		cfg.Capture.SettleDelay, err = strconv.ParseFloat(value, 64)
	case "capture.max_scrolls":
		cfg.Capture.MaxScrolls, err = strconv.Atoi(value)
	case "capture.stitch":
		cfg.Capture.Stitch, err = strconv.ParseBool(value)
	case "capture.edge_tap":
		cfg.Capture.EdgeTap, err = strconv.ParseBool(value)
	case "capture.overlap_check":
		cfg.Capture.OverlapCheck, err = strconv.ParseBool(value)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}
