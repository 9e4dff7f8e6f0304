package config

// Environment overlay. Call before flag parsing so flags win.
// Every variable uses the CHATFABRIC_ prefix; booleans accept "1",
// "true" or "yes".

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadServerEnv overlays non-empty environment variables onto cfg.
func LoadServerEnv(cfg *Server) {
	if v := os.Getenv("CHATFABRIC_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v, ok := os.LookupEnv("CHATFABRIC_METRICS_ADDR"); ok {
		// Set but empty turns metrics off.
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("CHATFABRIC_BAN"); v != "" {
		cfg.Banned = splitList(v)
	}
	if v := os.Getenv("CHATFABRIC_ACK_MODE"); v != "" {
		cfg.AckMode = v
	}
	if envBool("CHATFABRIC_ABORT_ON_READ_ERROR") {
		cfg.AbortOnReadError = true
	}
	if v := os.Getenv("CHATFABRIC_REJECT_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RejectDelay = d
		}
	}
	if v := os.Getenv("CHATFABRIC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// LoadClientEnv overlays non-empty environment variables onto cfg.
func LoadClientEnv(cfg *Client) {
	if v := os.Getenv("CHATFABRIC_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("CHATFABRIC_PORT"); v > 0 {
		cfg.Port = v
	}
	if v := envInt("CHATFABRIC_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
