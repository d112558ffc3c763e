package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/GregMSThompson/finance-tracker/internal/config"
	"github.com/GregMSThompson/finance-tracker/internal/store/memory"
)

type stubSecrets struct {
	values map[string]string
	asked  []string
}

func (s *stubSecrets) Secret(_ context.Context, name string) (string, error) {
	s.asked = append(s.asked, name)
	v, ok := s.values[name]
	if !ok {
		return "", errors.New("missing")
	}
	return v, nil
}

func TestDatabaseURLPrefersSecret(t *testing.T) {
	secrets := &stubSecrets{values: map[string]string{"db-url": "postgres://secret/ledger"}}
	cfg := &config.Config{DatabaseURL: "postgres://plain/ledger", DatabaseURLSecret: "db-url"}

	got, err := DatabaseURL(context.Background(), cfg, secrets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "postgres://secret/ledger" {
		t.Fatalf("expected secret url, got %q", got)
	}
	if len(secrets.asked) != 1 || secrets.asked[0] != "db-url" {
		t.Fatalf("unexpected secret lookups: %v", secrets.asked)
	}
}

func TestDatabaseURLPlain(t *testing.T) {
	cfg := &config.Config{DatabaseURL: "postgres://plain/ledger"}
	got, err := DatabaseURL(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != cfg.DatabaseURL {
		t.Fatalf("expected %q, got %q", cfg.DatabaseURL, got)
	}
}

func TestDatabaseURLMissing(t *testing.T) {
	if _, err := DatabaseURL(context.Background(), &config.Config{}, nil); err == nil {
		t.Fatalf("expected error when no database url is configured")
	}
}

func TestSecretVersionName(t *testing.T) {
	s := &secretManager{projectID: "ledger-prod"}
	cases := map[string]string{
		"db-url":                                   "projects/ledger-prod/secrets/db-url/versions/latest",
		"projects/other/secrets/db-url":            "projects/other/secrets/db-url/versions/latest",
		"projects/other/secrets/db-url/versions/3": "projects/other/secrets/db-url/versions/3",
	}
	for in, want := range cases {
		if got := s.versionName(in); got != want {
			t.Errorf("versionName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRunDefaultsToMemory(t *testing.T) {
	bs, err := Run(&config.Config{LogLevel: "error"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer bs.Close()

	if _, ok := bs.Store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", bs.Store)
	}
	if bs.Log == nil {
		t.Fatalf("expected logger")
	}
}
