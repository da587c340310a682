// Package cfg loads classifier configuration from a YAML file with
// environment-variable overrides, and validates every value against its
// sane range before anything downstream sees it.
package cfg

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Settings is the resolved runtime configuration.
type Settings struct {
	ModelPath string
	DataPath  string

	// Rule confidence at or above which the rule verdict overrides the
	// ensemble vote.
	RuleShortCircuit float64
	// Confidence added when domain plausibility corroborates the label.
	DomainBoost float64
	// Confidence reported for columns with no usable values.
	EmptyColumnConfidence float64

	// Training parameters.
	Seed                int64
	TrainRatio          float64
	ValRatio            float64
	MinExamplesPerLabel int
	MinMemberAccuracy   float64

	// Worker count for batch classification. 0 means GOMAXPROCS.
	Workers int
}

// ConfigFile is the YAML schema. Keys where zero is a legal deliberate
// setting are pointers so absence and zero stay distinguishable.
type ConfigFile struct {
	Model struct {
		Path string `yaml:"path"`
	} `yaml:"model"`

	Ensemble struct {
		RuleShortCircuit      float64  `yaml:"ruleShortCircuit"`
		DomainBoost           *float64 `yaml:"domainBoost"`
		EmptyColumnConfidence *float64 `yaml:"emptyColumnConfidence"`
	} `yaml:"ensemble"`

	Training struct {
		Seed                *int64   `yaml:"seed"`
		TrainRatio          float64  `yaml:"trainRatio"`
		ValRatio            float64  `yaml:"valRatio"`
		MinExamplesPerLabel int      `yaml:"minExamplesPerLabel"`
		MinMemberAccuracy   *float64 `yaml:"minMemberAccuracy"`
	} `yaml:"training"`

	System struct {
		DataPath string `yaml:"dataPath"`
		Workers  int    `yaml:"workers"`
	} `yaml:"system"`
}

// Defaults returns the settings used when no file and no environment
// overrides are present.
func Defaults() Settings {
	return Settings{
		ModelPath:             "model.json",
		DataPath:              "",
		RuleShortCircuit:      0.95,
		DomainBoost:           0.1,
		EmptyColumnConfidence: 0.1,
		Seed:                  1,
		TrainRatio:            0.64,
		ValRatio:              0.16,
		MinExamplesPerLabel:   10,
		MinMemberAccuracy:     0.5,
		Workers:               0,
	}
}

// Load resolves settings: .env if present, then the YAML file named by
// COLSENSE_CONFIG, then COLSENSE_* environment overrides on top.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	s := Defaults()
	if path := os.Getenv("COLSENSE_CONFIG"); path != "" {
		var err error
		s, err = loadFromYAML(path)
		if err != nil {
			return Settings{}, err
		}
	}
	applyEnv(&s)

	if err := validate(&s); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return s, nil
}

// LoadFile resolves settings from an explicit YAML path plus environment
// overrides. Used by tests and callers that manage their own paths.
func LoadFile(path string) (Settings, error) {
	s, err := loadFromYAML(path)
	if err != nil {
		return Settings{}, err
	}
	applyEnv(&s)
	if err := validate(&s); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return s, nil
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var f ConfigFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	s := Defaults()
	if f.Model.Path != "" {
		s.ModelPath = f.Model.Path
	}
	if f.System.DataPath != "" {
		s.DataPath = f.System.DataPath
	}
	if f.System.Workers != 0 {
		s.Workers = f.System.Workers
	}
	if f.Ensemble.RuleShortCircuit != 0 {
		s.RuleShortCircuit = f.Ensemble.RuleShortCircuit
	}
	if f.Ensemble.DomainBoost != nil {
		s.DomainBoost = *f.Ensemble.DomainBoost
	}
	if f.Ensemble.EmptyColumnConfidence != nil {
		s.EmptyColumnConfidence = *f.Ensemble.EmptyColumnConfidence
	}
	if f.Training.Seed != nil {
		s.Seed = *f.Training.Seed
	}
	if f.Training.TrainRatio != 0 {
		s.TrainRatio = f.Training.TrainRatio
	}
	if f.Training.ValRatio != 0 {
		s.ValRatio = f.Training.ValRatio
	}
	if f.Training.MinExamplesPerLabel != 0 {
		s.MinExamplesPerLabel = f.Training.MinExamplesPerLabel
	}
	if f.Training.MinMemberAccuracy != nil {
		s.MinMemberAccuracy = *f.Training.MinMemberAccuracy
	}
	return s, nil
}

func applyEnv(s *Settings) {
	s.ModelPath = getEnvOrDefault("COLSENSE_MODEL_PATH", s.ModelPath)
	s.DataPath = getEnvOrDefault("COLSENSE_DATA_PATH", s.DataPath)
	s.RuleShortCircuit = getFloatOrDefault("COLSENSE_RULE_SHORT_CIRCUIT", s.RuleShortCircuit)
	s.DomainBoost = getFloatOrDefault("COLSENSE_DOMAIN_BOOST", s.DomainBoost)
	s.EmptyColumnConfidence = getFloatOrDefault("COLSENSE_EMPTY_CONFIDENCE", s.EmptyColumnConfidence)
	s.Seed = getInt64OrDefault("COLSENSE_SEED", s.Seed)
	s.TrainRatio = getFloatOrDefault("COLSENSE_TRAIN_RATIO", s.TrainRatio)
	s.ValRatio = getFloatOrDefault("COLSENSE_VAL_RATIO", s.ValRatio)
	s.MinExamplesPerLabel = getIntOrDefault("COLSENSE_MIN_EXAMPLES_PER_LABEL", s.MinExamplesPerLabel)
	s.MinMemberAccuracy = getFloatOrDefault("COLSENSE_MIN_MEMBER_ACCURACY", s.MinMemberAccuracy)
	s.Workers = getIntOrDefault("COLSENSE_WORKERS", s.Workers)
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getFloatOrDefault(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Warn().Str("key", key).Str("value", v).Msg("invalid float in environment, using default")
	}
	return def
}

func getIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Warn().Str("key", key).Str("value", v).Msg("invalid int in environment, using default")
	}
	return def
}

func getInt64OrDefault(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
		log.Warn().Str("key", key).Str("value", v).Msg("invalid int in environment, using default")
	}
	return def
}

func validate(s *Settings) error {
	if s.ModelPath == "" {
		return fmt.Errorf("model path cannot be empty")
	}
	if s.RuleShortCircuit < 0.5 || s.RuleShortCircuit > 1 {
		return fmt.Errorf("rule short-circuit threshold must be between 0.5 and 1, got %f", s.RuleShortCircuit)
	}
	if s.DomainBoost < 0 || s.DomainBoost > 0.5 {
		return fmt.Errorf("domain boost must be between 0 and 0.5, got %f", s.DomainBoost)
	}
	if s.EmptyColumnConfidence < 0 || s.EmptyColumnConfidence > 0.3 {
		return fmt.Errorf("empty-column confidence must be between 0 and 0.3, got %f", s.EmptyColumnConfidence)
	}
	if s.TrainRatio <= 0 || s.TrainRatio >= 1 {
		return fmt.Errorf("train ratio must be in (0,1), got %f", s.TrainRatio)
	}
	if s.ValRatio <= 0 || s.ValRatio >= 1 {
		return fmt.Errorf("validation ratio must be in (0,1), got %f", s.ValRatio)
	}
	if s.TrainRatio+s.ValRatio >= 1 {
		return fmt.Errorf("train and validation ratios must leave a test split, got %f", s.TrainRatio+s.ValRatio)
	}
	if s.MinExamplesPerLabel < 1 || s.MinExamplesPerLabel > 10000 {
		return fmt.Errorf("minimum examples per label must be between 1 and 10000, got %d", s.MinExamplesPerLabel)
	}
	if s.MinMemberAccuracy < 0 || s.MinMemberAccuracy > 1 {
		return fmt.Errorf("minimum member accuracy must be between 0 and 1, got %f", s.MinMemberAccuracy)
	}
	if s.Workers < 0 || s.Workers > 256 {
		return fmt.Errorf("workers must be between 0 and 256, got %d", s.Workers)
	}
	return nil
}
