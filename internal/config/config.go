package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/subwatch/subwatch/internal/domain"
)

// DefaultFile is the flat key=value configuration file read at startup.
const DefaultFile = "config.env"

// Startup validation errors. These are fatal: the scheduler never starts
// when one of them is returned.
var (
	ErrNoSink    = errors.New("no notification sink configured: set TELEGRAM_BOT_TOKEN/TELEGRAM_CHAT_ID, DISCORD_WEBHOOK_URL or NATS_URL")
	ErrNoDomains = errors.New("no monitored domains configured: set DOMAINS")
)

type Config struct {
	Domains  []string      // ordered list of monitored domains
	Interval time.Duration // poll interval (default 1h)

	// Sinks
	TelegramBotToken  string
	TelegramChatID    string
	DiscordWebhookURL string
	NATSURL           string // optional, empty = NATS sink disabled
	NATSSubject       string

	// Store (Postgres)
	DBHost string
	DBPort string
	DBName string
	DBUser string
	DBPass string

	// Optional liveness cache. Empty RedisAddr disables caching.
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	LivenessCacheTTL time.Duration

	// Hostname source
	CrtshBaseURL  string
	FetchTimeout  time.Duration // per-fetch deadline
	FetchMinGap   time.Duration // minimum spacing between crt.sh requests
	DNSResolver   string        // resolver for domain liveness checks
	ProbeTimeout  time.Duration // HTTP probe timeout for liveness checks

	// HTTP command front-end
	ListenAddr      string
	ShutdownTimeout time.Duration

	// Logging
	LogLevel  string
	PrettyLog bool

	// StateFile persists runtime domain/interval changes across restarts.
	StateFile string
}

// Load reads the flat config file (if present), falls back to environment
// variables, then overlays the runtime state file. File values win over the
// environment, state values win over both.
func Load(path string) (*Config, error) {
	file, err := parseFlatFile(path)
	if err != nil {
		return nil, err
	}

	get := func(key, def string) string {
		if v, ok := file[key]; ok && v != "" {
			return v
		}
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Domains:  splitDomains(get("DOMAINS", "")),
		Interval: time.Duration(getInt(get, "MONITORING_INTERVAL", 3600)) * time.Second,

		TelegramBotToken:  get("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:    get("TELEGRAM_CHAT_ID", ""),
		DiscordWebhookURL: get("DISCORD_WEBHOOK_URL", ""),
		NATSURL:           get("NATS_URL", ""),
		NATSSubject:       get("NATS_SUBJECT", "subwatch.notifications"),

		DBHost: get("DB_HOST", "localhost"),
		DBPort: get("DB_PORT", "5432"),
		DBName: get("DB_NAME", "subwatch"),
		DBUser: get("DB_USER", "subwatch"),
		DBPass: get("DB_PASS", "subwatch"),

		RedisAddr:        get("REDIS_ADDR", ""),
		RedisPassword:    get("REDIS_PASSWORD", ""),
		RedisDB:          getInt(get, "REDIS_DB", 0),
		LivenessCacheTTL: getDuration(get, "LIVENESS_CACHE_TTL", 5*time.Minute),

		CrtshBaseURL: get("CRTSH_BASE_URL", "https://crt.sh"),
		FetchTimeout: getDuration(get, "FETCH_TIMEOUT", 60*time.Second),
		FetchMinGap:  getDuration(get, "FETCH_MIN_GAP", time.Second),
		DNSResolver:  get("DNS_RESOLVER", "8.8.8.8:53"),
		ProbeTimeout: getDuration(get, "PROBE_TIMEOUT", 5*time.Second),

		ListenAddr:      get("LISTEN_ADDR", ":8080"),
		ShutdownTimeout: getDuration(get, "SHUTDOWN_TIMEOUT", 5*time.Second),

		LogLevel:  get("LOG_LEVEL", "info"),
		PrettyLog: getBool(get, "PRETTY_LOG", false),

		StateFile: get("STATE_FILE", "subwatch_state.yaml"),
	}

	// Runtime mutations from a previous run win over static configuration.
	if st, err := LoadState(cfg.StateFile); err != nil {
		return nil, fmt.Errorf("load state file: %w", err)
	} else if st != nil {
		if len(st.Domains) > 0 {
			cfg.Domains = normalizeDomains(st.Domains)
		}
		if st.IntervalSeconds > 0 {
			cfg.Interval = time.Duration(st.IntervalSeconds) * time.Second
		}
	}

	return cfg, nil
}

// Validate enforces the startup invariants: at least one domain and at least
// one configured sink.
func (c *Config) Validate() error {
	if len(c.Domains) == 0 {
		return ErrNoDomains
	}
	if !c.TelegramEnabled() && c.DiscordWebhookURL == "" && c.NATSURL == "" {
		return ErrNoSink
	}
	if c.Interval <= 0 {
		return fmt.Errorf("monitoring interval must be positive, got %s", c.Interval)
	}
	return nil
}

// TelegramEnabled reports whether the Telegram sink is fully configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

// DefaultDomain is the domain legacy store rows are attributed to during
// migration from the single-domain schema.
func (c *Config) DefaultDomain() string {
	if len(c.Domains) == 0 {
		return ""
	}
	return c.Domains[0]
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPass,
	)
}

// parseFlatFile reads a key=value file, skipping blanks and # comments.
// A missing file is not an error.
func parseFlatFile(path string) (map[string]string, error) {
	out := map[string]string{}
	if path == "" {
		return out, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return out, nil
}

func splitDomains(s string) []string {
	return normalizeDomains(strings.Split(s, ","))
}

func normalizeDomains(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, d := range raw {
		d = domain.NormalizeDomain(d)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

func getInt(get func(string, string) string, key string, def int) int {
	if v := get(key, ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(get func(string, string) string, key string, def bool) bool {
	if v := get(key, ""); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(get func(string, string) string, key string, def time.Duration) time.Duration {
	if v := get(key, ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
