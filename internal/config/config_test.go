package config

import (
	"os"
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"DATABASE_URL", "WORKER_COUNT", "SAVE_EXIT_KEYS", "OUTPUT_FILE", "INSERT_BATCH_SIZE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OutputFile != "output.json" {
		t.Fatalf("output file = %q, want output.json", cfg.OutputFile)
	}
	if cfg.WorkerCount != 8 {
		t.Fatalf("worker count = %d, want 8", cfg.WorkerCount)
	}
	if want := []string{"institutions", "history"}; !reflect.DeepEqual(cfg.ExitKeys, want) {
		t.Fatalf("exit keys = %v, want %v", cfg.ExitKeys, want)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("WORKER_COUNT", "0")
	t.Setenv("SAVE_EXIT_KEYS", "institutions,history,buildings")
	t.Setenv("OUTPUT_FILE", "countries.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WorkerCount != 1 {
		t.Fatalf("worker count = %d, want 1", cfg.WorkerCount)
	}
	if len(cfg.ExitKeys) != 3 || cfg.ExitKeys[2] != "buildings" {
		t.Fatalf("exit keys = %v, want three keys ending with buildings", cfg.ExitKeys)
	}
	if cfg.OutputFile != "countries.json" {
		t.Fatalf("output file = %q, want countries.json", cfg.OutputFile)
	}
}

func TestLoadRejectsBadInt(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("WORKER_COUNT", "many")

	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
