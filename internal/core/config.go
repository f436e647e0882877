// Package core reads the diagnosis settings from YAML files and the
// environment.
package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/valter-silva-au/diagbus/pkg/models"
)

// Configuration keys.
const (
	KeyRecordingEnabled   = "recording.enabled"
	KeyRecordingFile      = "recording.file"
	KeyRecordingFormat    = "recording.format"
	KeyStackTracesEnabled = "analysis.stacktraces.enabled"
	KeyStackTracesDepth   = "analysis.stacktraces.depth"
)

// envPrefix maps recording.enabled to DIAG_RECORDING_ENABLED.
const envPrefix = "DIAG"

// Configuration reads typed settings, falling back to def when a key is unset.
type Configuration interface {
	GetBool(key string, def bool) bool
	GetString(key, def string) string
	GetInt(key string, def int) int
}

// viperConfiguration implements Configuration on top of a Viper instance.
type viperConfiguration struct {
	v *viper.Viper
}

// NewViperConfiguration wraps an existing Viper instance.
func NewViperConfiguration(v *viper.Viper) Configuration {
	return &viperConfiguration{v: v}
}

// LoadConfiguration reads the YAML file at path and overlays DIAG_* environment
// variables. With an empty path, diag.yaml in the working directory is used if
// it exists.
func LoadConfiguration(path string) (Configuration, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		return NewViperConfiguration(v), nil
	}

	v.SetConfigName("diag")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading diag.yaml: %w", err)
		}
	}
	return NewViperConfiguration(v), nil
}

func (c *viperConfiguration) GetBool(key string, def bool) bool {
	if !c.v.IsSet(key) {
		return def
	}
	return c.v.GetBool(key)
}

func (c *viperConfiguration) GetString(key, def string) string {
	if !c.v.IsSet(key) {
		return def
	}
	return c.v.GetString(key)
}

func (c *viperConfiguration) GetInt(key string, def int) int {
	if !c.v.IsSet(key) {
		return def
	}
	return c.v.GetInt(key)
}

// ReadDiagnosisConfig applies the recording and analysis keys of c on top of
// the defaults. An unknown recording format keeps compression on and is
// reported to log.
func ReadDiagnosisConfig(c Configuration, log logrus.FieldLogger) models.DiagnosisConfig {
	cfg := models.DefaultDiagnosisConfig()

	cfg.Enabled = c.GetBool(KeyRecordingEnabled, cfg.Enabled)
	cfg.RecordingFile = c.GetString(KeyRecordingFile, cfg.RecordingFile)
	cfg.StackTraces = c.GetBool(KeyStackTracesEnabled, cfg.StackTraces)
	cfg.StackDepth = c.GetInt(KeyStackTracesDepth, cfg.StackDepth)

	format := models.RecordingFormat(c.GetString(KeyRecordingFormat, string(models.FormatLegacyCompressed)))
	compress, known := format.Compressed()
	if !known && log != nil {
		log.WithField("format", string(format)).Warn("unknown recording format, using compressed output")
	}
	cfg.Compress = compress

	return cfg
}
