package config

import (
	"os"
	"testing"
)

func TestDefaultDataDirHonorsEnvVar(t *testing.T) {
	t.Setenv("RHYTHMENGINE_DATA_DIR", "/tmp/custom-rhythmengine")

	got := defaultDataDir()
	if got != "/tmp/custom-rhythmengine" {
		t.Errorf("defaultDataDir() = %q, want %q", got, "/tmp/custom-rhythmengine")
	}
}

func TestDefaultDataDirFallsBackToHome(t *testing.T) {
	t.Setenv("RHYTHMENGINE_DATA_DIR", "")

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available in this environment")
	}

	got := defaultDataDir()
	want := home + "/.rhythmengine"
	if got != want {
		t.Errorf("defaultDataDir() = %q, want %q", got, want)
	}
}
