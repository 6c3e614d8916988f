package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//Directories holds every data directory, created at startup when missing
type Directories struct {
	Root        string `mapstructure:"root"`
	Rallies     string `mapstructure:"rallies"`
	Annotations string `mapstructure:"annotations"`
	Boxes       string `mapstructure:"boxes"`
	RawFrames   string `mapstructure:"raw_frames"`
	Crops       string `mapstructure:"crops"`
	Review      string `mapstructure:"review"`
	Generated   string `mapstructure:"generated"`
	Confirmed   string `mapstructure:"confirmed"`
	Models      string `mapstructure:"models"`
	Logs        string `mapstructure:"logs"`
}

type HTTP struct {
	Port string `mapstructure:"port"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type Labeler struct {
	Seed        int64   `mapstructure:"seed"`
	Expansion   float64 `mapstructure:"expansion"`
	OutputSize  int     `mapstructure:"output_size"`
	FramesAhead int     `mapstructure:"frames_ahead"`
}

type Classifier struct {
	Default       string `mapstructure:"default"`
	OnnxLibrary   string `mapstructure:"onnx_library"`
	PoseModelPath string `mapstructure:"pose_model"`
}

type Gemini struct {
	APIKey string        `mapstructure:"api_key"`
	Model  string        `mapstructure:"model"`
	Delay  time.Duration `mapstructure:"delay"`
}

type Store struct {
	Driver      string `mapstructure:"driver"`
	RedisURL    string `mapstructure:"redis_url"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

type Detector struct {
	Script string `mapstructure:"script"`
	Videos string `mapstructure:"videos"`
}

//Config is the typed content of config.yaml
type Config struct {
	Directory  Directories `mapstructure:"directory"`
	HTTP       HTTP        `mapstructure:"http"`
	Log        Log         `mapstructure:"log"`
	Labeler    Labeler     `mapstructure:"labeler"`
	Classifier Classifier  `mapstructure:"classifier"`
	Gemini     Gemini      `mapstructure:"gemini"`
	Store      Store       `mapstructure:"store"`
	Detector   Detector    `mapstructure:"detector"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("directory.root", "data")
	v.SetDefault("directory.rallies", "data/rallies")
	v.SetDefault("directory.annotations", "data/annotations")
	v.SetDefault("directory.boxes", "data/bbox")
	v.SetDefault("directory.raw_frames", "data/raw_frames")
	v.SetDefault("directory.generated", "data/generated_labels")
	v.SetDefault("directory.confirmed", "data/confirmed_labels")
	v.SetDefault("directory.models", "data/models")
	v.SetDefault("directory.logs", "logs")

	v.SetDefault("http.port", "8080")
	v.SetDefault("log.level", "info")

	v.SetDefault("labeler.seed", 0)
	v.SetDefault("labeler.expansion", 2.0)
	v.SetDefault("labeler.output_size", 224)
	v.SetDefault("labeler.frames_ahead", 10)

	v.SetDefault("classifier.default", "random")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.delay", "4s")
	v.SetDefault("store.driver", "file")
}

//Load reads config.yaml from dir. A missing file leaves the defaults, a broken one is an error.
//GEMINI_API_KEY and SHOT_LABELER_* environment variables override the file.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("shot_labeler")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("gemini.api_key", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("Load: Could not read config file, got '%v'", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("Load: Could not decode config, got '%v'", err)
	}

	if cfg.HTTP.Port == "" || cfg.Directory.Rallies == "" || cfg.Directory.Generated == "" || cfg.Directory.Confirmed == "" {
		return nil, errors.New("Load: Missing critical configurations")
	}
	return &cfg, nil
}

//EnsureDirectories creates the root directory, then every other configured directory that does not exist yet
func (c *Config) EnsureDirectories() error {
	d := c.Directory
	dirs := []string{d.Root, d.Rallies, d.Annotations, d.Boxes, d.RawFrames, d.Crops, d.Review, d.Generated, d.Confirmed, d.Models, d.Logs}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("EnsureDirectories: %w", err)
			}
			if err := os.MkdirAll(filepath.Clean(dir), 0755); err != nil {
				return fmt.Errorf("EnsureDirectories: Error creating '%s', got '%v'", dir, err)
			}
		}
	}
	return nil
}
