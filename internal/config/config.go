package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	DatabaseURL string // empty means in-memory storage
	JWTSecret   string
	TokenTTL    time.Duration
	AniListURL  string
	AniListRPM  int
	DrawReveal  time.Duration
	CORSOrigins []string
	GMUser      string
	GMPass      string
	LogLevel    string

	ExportEnabled bool
	ExportFile    string
}

func FromEnv() Config {
	c := Config{}
	c.Port = getenv("PORT", "8080")
	c.DatabaseURL = os.Getenv("DATABASE_URL")
	c.JWTSecret = getenv("JWT_SECRET", "dev-secret-change-me")
	c.TokenTTL = time.Duration(getint("TOKEN_TTL_HOURS", 24*30)) * time.Hour
	c.AniListURL = getenv("ANILIST_URL", "https://graphql.anilist.co")
	c.AniListRPM = getint("ANILIST_RPM", 90)
	c.DrawReveal = time.Duration(getint("DRAW_REVEAL_MS", 3000)) * time.Millisecond
	c.CORSOrigins = splitList(os.Getenv("CORS_ORIGINS"))
	c.GMUser = os.Getenv("GM_USER")
	c.GMPass = os.Getenv("GM_PASS")
	c.LogLevel = getenv("LOG_LEVEL", "info")
	c.ExportEnabled = getenv("EXPORT_ENABLED", "false") == "true"
	c.ExportFile = getenv("EXPORT_FILE", "./exports/watch-log.txt")
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
