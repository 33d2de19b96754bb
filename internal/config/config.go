package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"fsubmedia/internal/gate"

	"go.uber.org/zap"
)

type Config struct {
	BotToken string

	// Public channel the deep-links are announced in. Exactly one of
	// the two is set, depending on whether the env value is an @handle
	// or a numeric chat id.
	PublishChannel   string
	PublishChannelID int64

	// Postgres DSN; when empty the SQLite file at DatabasePath is used.
	DatabaseURL  string
	DatabasePath string

	// Port for the ops HTTP API; empty disables it.
	APIPort string

	Requirements []gate.Requirement
	GateTimeout  time.Duration
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("required environment variable is not set", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func Load(log *zap.Logger) *Config {
	cfg := &Config{
		BotToken:     strings.TrimSpace(getEnv("BOT_TOKEN", log)),
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DatabasePath: strings.TrimSpace(os.Getenv("DATABASE_PATH")),
		APIPort:      strings.TrimSpace(os.Getenv("API_PORT")),
		Requirements: parseRequirements(getEnv("REQUIRED_CHATS", log), log),
		GateTimeout:  time.Duration(parseInt(os.Getenv("GATE_TIMEOUT_SECONDS"), 5)) * time.Second,
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "fsub.db"
	}

	channel := strings.TrimSpace(getEnv("PUBLISH_CHANNEL", log))
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		cfg.PublishChannelID = id
	} else {
		cfg.PublishChannel = normalizeHandle(channel)
	}

	return cfg
}

// parseRequirements parses the REQUIRED_CHATS value: comma-separated
// entries of the form "chat", "chat|Label" or "chat|Label|join-url",
// where chat is an @handle or a numeric chat id. For @handles the join
// URL defaults to the public t.me link; numeric chats need an explicit
// one or the join button is omitted.
func parseRequirements(s string, log *zap.Logger) []gate.Requirement {
	var out []gate.Requirement
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, "|", 3)
		chat := strings.TrimSpace(parts[0])

		var req gate.Requirement
		if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
			req.ChatID = id
		} else {
			req.Username = normalizeHandle(chat)
			req.JoinURL = "https://t.me/" + strings.TrimPrefix(req.Username, "@")
		}

		req.Label = req.Ref()
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			req.Label = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 && strings.TrimSpace(parts[2]) != "" {
			req.JoinURL = strings.TrimSpace(parts[2])
		}
		if req.JoinURL == "" {
			log.Warn("requirement has no join link, button will be omitted",
				zap.String("chat", req.Ref()),
			)
		}

		out = append(out, req)
	}
	if len(out) == 0 {
		log.Error("REQUIRED_CHATS contains no valid entries")
		panic("REQUIRED_CHATS contains no valid entries")
	}
	return out
}

// normalizeHandle reduces "@name", "t.me/name" and "https://t.me/name"
// to the "@name" form the Bot API expects.
func normalizeHandle(s string) string {
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "t.me/")
	if !strings.HasPrefix(s, "@") {
		s = "@" + s
	}
	return s
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
