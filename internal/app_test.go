package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/valter-silva-au/diagbus/internal/diagnosis"
	"github.com/valter-silva-au/diagbus/internal/recording"
)

func TestNewApp_RecordsConfiguredChannel(t *testing.T) {
	dir := t.TempDir()
	recordPath := filepath.Join(dir, "run.record")
	configPath := filepath.Join(dir, "diag.yaml")
	content := "recording:\n  enabled: true\n  file: " + recordPath + "\n  format: jsonl\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	logger, _ := test.NewNullLogger()
	app, err := NewApp(configPath, logger)
	if err != nil {
		t.Fatalf("creating app: %v", err)
	}

	if !app.Config.Enabled || app.Config.Compress {
		t.Errorf("unexpected config %+v", app.Config)
	}

	var id diagnosis.ChannelID[string] = "app.test"
	diagnosis.Channel(app.Diagnosis, id).Publish("hello")

	if err := app.Close(); err != nil {
		t.Fatalf("closing app: %v", err)
	}
	if err := app.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	records, err := recording.Replay(recordPath, recording.Filter{})
	if err != nil {
		t.Fatalf("replaying: %v", err)
	}
	if len(records) != 1 || records[0].Channel != "app.test" {
		t.Fatalf("unexpected records %+v", records)
	}
	if got, _ := recording.Decode[string](records[0]); got != "hello" {
		t.Errorf("expected payload hello, got %q", got)
	}
}

func TestNewApp_MissingConfig(t *testing.T) {
	logger, _ := test.NewNullLogger()
	if _, err := NewApp(filepath.Join(t.TempDir(), "missing.yaml"), logger); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Run("env", func(t *testing.T) {
		t.Setenv("DIAG_CONFIG", "/etc/diag.yaml")
		if got := ResolveConfigPath(); got != "/etc/diag.yaml" {
			t.Errorf("expected /etc/diag.yaml, got %s", got)
		}
	})

	t.Run("walks up", func(t *testing.T) {
		t.Setenv("DIAG_CONFIG", "")
		root := t.TempDir()
		if err := os.WriteFile(filepath.Join(root, "diag.yaml"), nil, 0o644); err != nil {
			t.Fatalf("writing config: %v", err)
		}
		nested := filepath.Join(root, "a", "b")
		if err := os.MkdirAll(nested, 0o755); err != nil {
			t.Fatalf("creating dirs: %v", err)
		}
		chdir(t, nested)

		want, _ := filepath.EvalSymlinks(filepath.Join(root, "diag.yaml"))
		got, _ := filepath.EvalSymlinks(ResolveConfigPath())
		if got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	})
}

func TestNewApp_NilLoggerUsesStandardLogger(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "diag.yaml")
	// The recording directory does not exist, so opening it fails and the
	// failure is logged.
	content := "recording:\n  enabled: true\n  file: " + filepath.Join(dir, "missing", "run.record") + "\n  format: bogus\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	app, err := NewApp(configPath, nil)
	if err != nil {
		t.Fatalf("creating app: %v", err)
	}
	defer app.Close()

	if app.Logger == nil {
		t.Fatal("expected a default logger")
	}
	var id diagnosis.ChannelID[int] = "app.nil-logger"
	diagnosis.Channel(app.Diagnosis, id).Publish(1)
}

// chdir changes the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getting working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("changing directory: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
