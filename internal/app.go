// Package internal provides the App struct that wires configuration, logging
// and the diagnosis bus together for the diag command.
package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"go.uber.org/dig"

	"github.com/valter-silva-au/diagbus/internal/core"
	"github.com/valter-silva-au/diagbus/internal/diagnosis"
	"github.com/valter-silva-au/diagbus/pkg/models"
)

// App holds the services of a diagnosis-enabled process.
type App struct {
	Config    models.DiagnosisConfig
	Logger    logrus.FieldLogger
	Diagnosis *diagnosis.Diagnosis
}

// configPath is a named string so dig can tell it apart from other strings.
type configPath string

// NewApp loads the configuration at path (see core.LoadConfiguration) and
// builds the diagnosis facade. The recording itself is opened on first use. A
// nil logger falls back to the logrus standard logger.
func NewApp(path string, logger logrus.FieldLogger) (*App, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c := dig.New()

	if err := c.Provide(func() configPath { return configPath(path) }); err != nil {
		return nil, err
	}
	if err := c.Provide(func() logrus.FieldLogger { return logger }); err != nil {
		return nil, err
	}
	if err := c.Provide(newConfiguration); err != nil {
		return nil, err
	}
	if err := c.Provide(core.ReadDiagnosisConfig); err != nil {
		return nil, err
	}
	if err := c.Provide(newDiagnosis); err != nil {
		return nil, err
	}

	var app *App
	err := c.Invoke(func(cfg models.DiagnosisConfig, log logrus.FieldLogger, d *diagnosis.Diagnosis) {
		app = &App{Config: cfg, Logger: log, Diagnosis: d}
	})
	if err != nil {
		return nil, fmt.Errorf("building app: %w", dig.RootCause(err))
	}
	return app, nil
}

func newConfiguration(path configPath) (core.Configuration, error) {
	return core.LoadConfiguration(string(path))
}

func newDiagnosis(cfg models.DiagnosisConfig, log logrus.FieldLogger) *diagnosis.Diagnosis {
	return diagnosis.New(cfg, diagnosis.WithLogger(log))
}

// Close shuts the diagnosis facade down. It is safe to call more than once.
func (a *App) Close() error {
	if a.Diagnosis != nil {
		return a.Diagnosis.Shutdown()
	}
	return nil
}

// ResolveConfigPath determines which configuration file to load. It checks the
// DIAG_CONFIG env var, then walks up from the current directory looking for
// diag.yaml. An empty result means no file was found.
func ResolveConfigPath() string {
	if path := os.Getenv("DIAG_CONFIG"); path != "" {
		return path
	}
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, "diag.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
