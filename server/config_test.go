// ABOUTME: Tests for environment configuration, bind validation, and the tuning file.
package server

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GEOTWIN_BIND", "GEOTWIN_DATA_DIR", "GEOTWIN_ALLOW_REMOTE", "GEOTWIN_AUTH_TOKEN", "GEOTWIN_TUNING_FILE", "GEOTWIN_SAMPLE_RATE"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.Bind != "127.0.0.1:8050" {
		t.Errorf("Bind = %q", cfg.Bind)
	}
	if cfg.DataDir == "" {
		t.Error("DataDir empty")
	}
	if cfg.AllowRemote {
		t.Error("AllowRemote should default to false")
	}
}

func TestRemoteRequiresToken(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEOTWIN_ALLOW_REMOTE", "true")

	_, err := ConfigFromEnv()
	if !errors.Is(err, ErrRemoteWithoutToken) {
		t.Errorf("err = %v, want ErrRemoteWithoutToken", err)
	}

	t.Setenv("GEOTWIN_AUTH_TOKEN", "secret")
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv with token: %v", err)
	}
	if !cfg.AllowRemote || cfg.AuthToken != "secret" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestNonLoopbackBindRequiresAllowRemote(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEOTWIN_BIND", "0.0.0.0:8050")

	_, err := ConfigFromEnv()
	if !errors.Is(err, ErrNonLoopbackBind) {
		t.Errorf("err = %v, want ErrNonLoopbackBind", err)
	}
}

func TestIsLoopbackBind(t *testing.T) {
	cases := []struct {
		bind string
		want bool
	}{
		{"127.0.0.1:8050", true},
		{"localhost:8050", true},
		{"[::1]:8050", true},
		{"0.0.0.0:8050", false},
		{"192.168.1.10:8050", false},
		{"not-an-address", false},
	}
	for _, tc := range cases {
		if got := isLoopbackBind(tc.bind); got != tc.want {
			t.Errorf("isLoopbackBind(%q) = %v, want %v", tc.bind, got, tc.want)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := `# comment
GEOTWIN_TEST_PLAIN=value
GEOTWIN_TEST_QUOTED="quoted value"
GEOTWIN_TEST_SINGLE='single'

GEOTWIN_TEST_EXISTING=from-file
not a kv line
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("GEOTWIN_TEST_EXISTING", "from-env")
	for _, k := range []string{"GEOTWIN_TEST_PLAIN", "GEOTWIN_TEST_QUOTED", "GEOTWIN_TEST_SINGLE"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	if got := os.Getenv("GEOTWIN_TEST_PLAIN"); got != "value" {
		t.Errorf("plain = %q", got)
	}
	if got := os.Getenv("GEOTWIN_TEST_QUOTED"); got != "quoted value" {
		t.Errorf("quoted = %q", got)
	}
	if got := os.Getenv("GEOTWIN_TEST_SINGLE"); got != "single" {
		t.Errorf("single-quoted = %q", got)
	}
	if got := os.Getenv("GEOTWIN_TEST_EXISTING"); got != "from-env" {
		t.Errorf("existing env var overridden: %q", got)
	}
}

func TestLoadDotEnvMissingFileIsNil(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("missing file should not error: %v", err)
	}
}

func TestLoadTuning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	yaml := "strain_points: 200\nsample_rate_hz: 50\nrefinement: 3\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	tuning, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("LoadTuning: %v", err)
	}
	if tuning.StrainPoints != 200 || tuning.SampleRateHz != 50 || tuning.Refinement != 3 {
		t.Errorf("tuning = %+v", tuning)
	}
}

func TestSampleRateOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEOTWIN_SAMPLE_RATE", "256")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.Tuning.SampleRateHz != 256 {
		t.Errorf("SampleRateHz = %g", cfg.Tuning.SampleRateHz)
	}

	t.Setenv("GEOTWIN_SAMPLE_RATE", "zero")
	if _, err := ConfigFromEnv(); err == nil {
		t.Error("expected error for a non-numeric sample rate")
	}
}

func TestLoadTuningRejectsNegatives(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("refinement: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTuning(path); err == nil {
		t.Error("expected error for negative tuning values")
	}
}
