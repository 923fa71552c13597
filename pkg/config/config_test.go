package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Environment != "development" {
		t.Errorf("environment = %q", cfg.Environment)
	}
	if cfg.IsProduction() {
		t.Error("development config reports production")
	}
	if cfg.Digest.Window != 24*time.Hour {
		t.Errorf("window = %v", cfg.Digest.Window)
	}
	if cfg.Digest.Queue != "daily-note-queue" {
		t.Errorf("queue = %q", cfg.Digest.Queue)
	}
	if cfg.Kafka.Topics.Work != "digest-work" {
		t.Errorf("work topic = %q", cfg.Kafka.Topics.Work)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
environment: production
digest:
  queue: prod-queue
  summaryName: Daily Summary
  excludedTerms:
    - Weekly Summary
  window: 24h
github:
  owner: octocat
  repo: notes
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("expected production")
	}
	if cfg.Digest.Queue != "prod-queue" {
		t.Errorf("queue = %q", cfg.Digest.Queue)
	}
	if cfg.GitHub.Owner != "octocat" || cfg.GitHub.Repo != "notes" {
		t.Errorf("github = %+v", cfg.GitHub)
	}
	// Values the file does not set keep their defaults.
	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d", cfg.Server.Port)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("ND_ENVIRONMENT", "production")
	t.Setenv("ND_GITHUB_TOKEN", "env-token")
	t.Setenv("ND_KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("ND_DIGEST_EXCLUDED_TERMS", "Weekly Summary,Monthly Summary")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("expected production from env")
	}
	if cfg.GitHub.Token != "env-token" {
		t.Errorf("token = %q", cfg.GitHub.Token)
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"kafka-1:9092", "kafka-2:9092"}) {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if !reflect.DeepEqual(cfg.Digest.ExcludedTerms, []string{"Weekly Summary", "Monthly Summary"}) {
		t.Errorf("excluded terms = %v", cfg.Digest.ExcludedTerms)
	}
}

func TestExclusionTermsIncludeSummaryName(t *testing.T) {
	d := DigestConfig{
		SummaryName:   "Daily Summary",
		ExcludedTerms: []string{"Weekly Summary"},
	}
	got := d.ExclusionTerms()
	want := []string{"Daily Summary", "Weekly Summary"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExclusionTerms() = %v, want %v", got, want)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
