package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr  string
	DataDir   string
	DBPath    string
	Workspace string
	WebDir    string

	LLMProvider string
	LLMModel    string
	LLMAPIKey   string

	MaxToolIterations int
	HeartbeatInterval time.Duration
	MemoryPeriod      int

	FeishuWebhookURL string
	DiscordToken     string
}

func Load() Config {
	loadDotEnv(".env")
	dataDir := getEnv("AGENTD_DATA_DIR", "data")
	return Config{
		HTTPAddr:  getEnv("AGENTD_HTTP_ADDR", ":18790"),
		DataDir:   dataDir,
		DBPath:    getEnv("AGENTD_DB_PATH", filepath.Join(dataDir, "agentd.db")),
		Workspace: getEnv("AGENTD_WORKSPACE", filepath.Join(dataDir, "workspace")),
		WebDir:    getEnv("AGENTD_WEB_DIR", "web"),

		LLMProvider: getEnv("AGENTD_LLM_PROVIDER", "openai-responses"),
		LLMModel:    getEnv("AGENTD_LLM_MODEL", ""),
		LLMAPIKey:   getEnv("AGENTD_LLM_API_KEY", ""),

		MaxToolIterations: getEnvInt("AGENTD_MAX_TOOL_ITERATIONS", 20),
		HeartbeatInterval: getEnvDuration("AGENTD_HEARTBEAT_INTERVAL", 15*time.Second),
		MemoryPeriod:      getEnvInt("AGENTD_MEMORY_PERIOD", 10),

		FeishuWebhookURL: getEnv("AGENTD_FEISHU_WEBHOOK", ""),
		DiscordToken:     getEnv("AGENTD_DISCORD_TOKEN", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, value)
	}
}
