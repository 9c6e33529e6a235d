package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kiliankoe/animebingo/internal/anilist"
	"github.com/kiliankoe/animebingo/internal/auth"
	"github.com/kiliankoe/animebingo/internal/config"
	"github.com/kiliankoe/animebingo/internal/database"
	"github.com/kiliankoe/animebingo/internal/game"
	"github.com/kiliankoe/animebingo/internal/handlers"
	"github.com/kiliankoe/animebingo/internal/store"
	"github.com/kiliankoe/animebingo/internal/ws"
	staticserver "github.com/kiliankoe/animebingo/static"
)

var version = "dev" // Set at build time via -ldflags

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`Anime Bingo - shared game state for anime watch clubs

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                Port to listen on (default: 8080)
  DATABASE_URL        Postgres connection string (default: in-memory storage)
  JWT_SECRET          Secret used to sign session tokens
  TOKEN_TTL_HOURS     Session token lifetime in hours (default: 720)
  ANILIST_URL         AniList GraphQL endpoint (default: https://graphql.anilist.co)
  ANILIST_RPM         AniList requests per minute (default: 90)
  DRAW_REVEAL_MS      Reveal animation length sent with draws (default: 3000)
  CORS_ORIGINS        Comma separated allowed origins (default: *)
  GM_USER             Username for the /gm routes (basic auth)
  GM_PASS             Password for the /gm routes
  LOG_LEVEL           debug, info, warn or error (default: info)
  EXPORT_ENABLED      Append finished watches to a text log (default: false)
  EXPORT_FILE         Path of the watch log (default: ./exports/watch-log.txt)

Examples:
  %s                  Start server with default settings
  %s --port 3000      Start server on port 3000

Visit http://localhost:8080 after starting the server.
`, os.Args[0], os.Args[0], os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("Anime Bingo %s\n", version)
		return
	}

	cfg := config.FromEnv()
	if *portFlag != "" {
		cfg.Port = *portFlag
	}

	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = log.Output(cw)
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	var st game.Store
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("database")
		}
		st = store.NewPostgres(db)
		log.Info().Msg("using postgres storage")
	} else {
		st = store.NewMemory()
		log.Warn().Msg("DATABASE_URL not set, games live in memory only")
	}

	var (
		opts     []game.Option
		watchLog *game.WatchLog
	)
	if cfg.ExportEnabled {
		watchLog = game.NewWatchLog(cfg.ExportFile)
		opts = append(opts, game.WithWatchLog(watchLog))
		log.Info().Str("file", cfg.ExportFile).Msg("watch log enabled")
	}
	manager := game.NewManager(st, opts...)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") || path == "/health" {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		log.Info().Str("method", c.Request.Method).Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))

	sock := ws.New(manager, tokens, cfg.DrawReveal)
	io := sock.Mount(r)
	defer io.Close()
	manager.Subscribe(sock)

	hub := ws.NewHub(manager.ListGames)
	manager.Subscribe(hub)
	r.GET("/ws/games", hub.Handle)

	handlers.Register(r, handlers.NewGameHandler(manager), handlers.NewAniListHandler(anilist.New(cfg.AniListURL, cfg.AniListRPM)), tokens)

	handlers.RegisterGM(r, cfg.GMUser, cfg.GMPass, watchLog)

	// Serve frontend (if embedded build is present) for all other routes
	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, handlers.ErrorResponse{Error: "not found"})
			return
		}
		staticserver.Handler().ServeHTTP(c.Writer, c.Request)
	})

	log.Info().Str("port", cfg.Port).Str("version", version).Msg("listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}
