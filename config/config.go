package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the service.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	// CORSAllowedOrigins is the browser origin whitelist; empty means any.
	CORSAllowedOrigins []string

	// EventualPlayerCap limits eventual players per team per match.
	EventualPlayerCap int
	// LiveHistorySize is how many deltas per match the hub keeps for replay.
	LiveHistorySize int
	// WalkoverGoals is the score credited to the present team of a walkover.
	WalkoverGoals int
}

// Load reads configuration from the environment. A .env file is picked up
// when present, which is convenient for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	eventualCap, err := intEnv("EVENTUAL_PLAYER_CAP", 4)
	if err != nil {
		return nil, err
	}
	historySize, err := intEnv("LIVE_HISTORY_SIZE", 256)
	if err != nil {
		return nil, err
	}
	walkoverGoals, err := intEnv("WALKOVER_GOALS", 3)
	if err != nil {
		return nil, err
	}

	var origins []string
	if raw := os.Getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}

	return &Config{
		DatabaseURL:        dbURL,
		JWTSecretKey:       jwtKey,
		ServerPort:         port,
		CORSAllowedOrigins: origins,
		EventualPlayerCap:  eventualCap,
		LiveHistorySize:    historySize,
		WalkoverGoals:      walkoverGoals,
	}, nil
}

func intEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return value, nil
}
