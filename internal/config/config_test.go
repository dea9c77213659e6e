package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if *cfg != *want {
		t.Errorf("got %+v, want defaults %+v", cfg, want)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.WorkingDir = "/srv/work"
	cfg.WorkStartHour = 8
	cfg.WorkEndHour = 18
	cfg.BlocksPerTask = 2
	cfg.DiscordWebhook = "https://discord.example/hook"

	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip changed the config:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	content := "work_start_hour: 7\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WorkStartHour != 7 {
		t.Errorf("work_start_hour = %d, want 7", cfg.WorkStartHour)
	}
	if cfg.WorkEndHour != Default().WorkEndHour {
		t.Errorf("work_end_hour = %d, want the default", cfg.WorkEndHour)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	content := "work_start_hour: 18\nwork_end_hour: 9\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(dir)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("Load error = %v, want ErrInvalid", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"start after end", func(c *Config) { c.WorkStartHour = 20 }, false},
		{"bad block minutes", func(c *Config) { c.BlockMinutes = 0 }, false},
		{"huge block minutes", func(c *Config) { c.BlockMinutes = 600 }, false},
		{"zero blocks per task", func(c *Config) { c.BlocksPerTask = 0 }, false},
		{"zero horizon", func(c *Config) { c.ScheduleDaysAhead = 0 }, false},
		{"zero candidate limit", func(c *Config) { c.CandidateLimit = 0 }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.ok && err != nil {
				t.Errorf("Validate: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestDataDirHonorsEnv(t *testing.T) {
	t.Setenv("CHLOE_DATA", "/tmp/chloe-test")

	dir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir: %v", err)
	}
	if dir != "/tmp/chloe-test" {
		t.Errorf("DataDir = %q", dir)
	}
}
