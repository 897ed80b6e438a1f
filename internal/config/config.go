package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"

	"momentum-radar/internal/domain"
)

// Config carries every tunable as a named, validated field.
type Config struct {
	HTTPAddr         string
	APIKey           string
	DatabaseURL      string
	RedisURL         string
	TelegramBotToken string
	TelegramChatIDs  []int64

	ExchangeBaseURL string
	QuoteAsset      string

	RSIPeriod           int
	RSITimeframes       []string
	RSICandleLimit      int
	RSIPollSecs         int
	RSICycleTimeoutSecs int
	RSICategories       []domain.RSICategory
	NotableLow          float64
	NotableHigh         float64

	AlertPollSecs int
	AlertTiers    []domain.AlertTier
}

// Load reads the environment, filling defaults and rejecting invalid
// values at startup rather than mid-cycle.
func Load() *Config {
	cfg := &Config{
		HTTPAddr:         ":8080",
		APIKey:           strings.TrimSpace(os.Getenv("API_KEY")),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		ExchangeBaseURL:  strings.TrimSpace(os.Getenv("EXCHANGE_BASE_URL")),
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set, notifications disabled")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set, candle history disabled")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}

	cfg.TelegramChatIDs = parseChatIDs(os.Getenv("TELEGRAM_CHAT_IDS"))

	cfg.QuoteAsset = strings.ToUpper(strings.TrimSpace(os.Getenv("QUOTE_ASSET")))
	if cfg.QuoteAsset == "" {
		cfg.QuoteAsset = "USDT"
	}

	cfg.RSIPeriod = intEnv("RSI_PERIOD", 14)
	cfg.RSICandleLimit = intEnv("RSI_CANDLE_LIMIT", 100)
	cfg.RSIPollSecs = intEnv("RSI_POLL_SECS", 300)
	cfg.RSICycleTimeoutSecs = intEnv("RSI_CYCLE_TIMEOUT_SECS", 180)
	cfg.AlertPollSecs = intEnv("ALERT_POLL_SECS", 60)

	cfg.RSITimeframes = parseTimeframes(os.Getenv("RSI_TIMEFRAMES"))
	cfg.RSICategories = parseCategories(os.Getenv("RSI_CATEGORIES"))

	cfg.NotableLow = floatEnv("RSI_NOTABLE_LOW", 30)
	cfg.NotableHigh = floatEnv("RSI_NOTABLE_HIGH", 70)
	if cfg.NotableLow >= cfg.NotableHigh {
		log.Printf("Warning: invalid notable band [%v, %v], using defaults", cfg.NotableLow, cfg.NotableHigh)
		cfg.NotableLow, cfg.NotableHigh = 30, 70
	}

	cfg.AlertTiers = []domain.AlertTier{
		{Timeframe: "1h", ThresholdPct: floatEnv("ALERT_THRESHOLD_1H", 5)},
		{Timeframe: "24h", ThresholdPct: floatEnv("ALERT_THRESHOLD_24H", 10), Hours: parseHours("ALERT_HOURS_24H", []int{9, 21})},
		{Timeframe: "7d", ThresholdPct: floatEnv("ALERT_THRESHOLD_7D", 15), Hours: parseHours("ALERT_HOURS_7D", []int{10})},
		{Timeframe: "30d", ThresholdPct: floatEnv("ALERT_THRESHOLD_30D", 25), Hours: parseHours("ALERT_HOURS_30D", []int{10})},
	}

	return cfg
}

func intEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func floatEnv(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s=%q, using %v", key, v, def)
		return def
	}
	return n
}

func parseChatIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Printf("Warning: skipping invalid chat id %q", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func parseTimeframes(raw string) []string {
	supported := make(map[string]bool, len(domain.SupportedTimeframes))
	for _, tf := range domain.SupportedTimeframes {
		supported[tf] = true
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !supported[part] {
			log.Printf("Warning: skipping unsupported timeframe %q", part)
			continue
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return []string{"1h", "4h", "1d"}
	}
	return out
}

func parseHours(key string, def []int) []int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	var hours []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		h, err := strconv.Atoi(part)
		if err != nil || h < 0 || h > 23 {
			log.Printf("Warning: invalid hour %q in %s", part, key)
			continue
		}
		hours = append(hours, h)
	}
	if len(hours) == 0 {
		return def
	}
	return hours
}

func parseCategories(raw string) []domain.RSICategory {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.DefaultRSICategories()
	}
	var categories []domain.RSICategory
	if err := json.Unmarshal([]byte(raw), &categories); err != nil {
		log.Printf("Warning: invalid RSI_CATEGORIES, using defaults: %v", err)
		return domain.DefaultRSICategories()
	}
	for _, c := range categories {
		if c.Name == "" || (c.Above == nil && c.Below == nil) {
			log.Println("Warning: RSI_CATEGORIES entries need a name and a bound, using defaults")
			return domain.DefaultRSICategories()
		}
	}
	return categories
}
