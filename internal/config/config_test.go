package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DATABASE_URL", "ANILIST_RPM", "DRAW_REVEAL_MS", "CORS_ORIGINS", "EXPORT_ENABLED"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	if c.Port != "8080" {
		t.Fatalf("expected default port, got %s", c.Port)
	}
	if c.DatabaseURL != "" {
		t.Fatalf("expected no database, got %s", c.DatabaseURL)
	}
	if c.AniListRPM != 90 || c.DrawReveal != 3*time.Second {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.CORSOrigins != nil || c.ExportEnabled {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ANILIST_RPM", "30")
	t.Setenv("DRAW_REVEAL_MS", "1500")
	t.Setenv("CORS_ORIGINS", "http://localhost:5173, https://bingo.example ,")
	t.Setenv("EXPORT_ENABLED", "true")
	t.Setenv("ANILIST_URL", "http://anilist.test")

	c := FromEnv()
	if c.Port != "9000" || c.AniListRPM != 30 || c.DrawReveal != 1500*time.Millisecond {
		t.Fatalf("overrides not applied: %+v", c)
	}
	if len(c.CORSOrigins) != 2 || c.CORSOrigins[1] != "https://bingo.example" {
		t.Fatalf("unexpected origins: %v", c.CORSOrigins)
	}
	if !c.ExportEnabled || c.AniListURL != "http://anilist.test" {
		t.Fatalf("unexpected config: %+v", c)
	}

	t.Setenv("ANILIST_RPM", "lots")
	if FromEnv().AniListRPM != 90 {
		t.Fatal("invalid number should fall back to the default")
	}
}
