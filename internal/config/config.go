// Load defaults
// Load YAML or TOML config
// Override with .env and environment
// Fall back to the OS keyring for the password
// Validate config

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// KeyringService groups the agent's secrets in the OS keychain.
const KeyringService = "outreach-agent"

// Config is built once at startup and passed by value; nothing mutates it
// afterwards.
type Config struct {
	Platform    PlatformConfig    `yaml:"platform" toml:"platform"`
	Credentials Credentials       `yaml:"credentials" toml:"credentials"`
	Outreach    OutreachConfig    `yaml:"outreach" toml:"outreach"`
	Schedule    ScheduleConfig    `yaml:"schedule" toml:"schedule"`
	Backoff     BackoffConfig     `yaml:"backoff" toml:"backoff"`
	Retry       RetryConfig       `yaml:"retry" toml:"retry"`
	Pacing      PacingConfig      `yaml:"pacing" toml:"pacing"`
	Browser     BrowserConfig     `yaml:"browser" toml:"browser"`
	Matcher     MatcherConfig     `yaml:"matcher" toml:"matcher"`
	Selectors   SelectorConfig    `yaml:"selectors" toml:"selectors"`
	Store       StoreConfig       `yaml:"store" toml:"store"`
	Notify      NotifyConfig      `yaml:"notify" toml:"notify"`
	Status      StatusConfig      `yaml:"status" toml:"status"`
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`
}

type PlatformConfig struct {
	LoginURL   string `yaml:"login_url" toml:"login_url"`
	ListingURL string `yaml:"listing_url" toml:"listing_url"`
}

type Credentials struct {
	Login    string `yaml:"login" toml:"login"`
	Password string `yaml:"password" toml:"password"`
}

type OutreachConfig struct {
	Message     string   `yaml:"message" toml:"message"`
	Categories  []string `yaml:"categories" toml:"categories"`
	SendEnabled bool     `yaml:"send_enabled" toml:"send_enabled"`
}

type ScheduleConfig struct {
	CheckInterval       time.Duration `yaml:"check_interval" toml:"check_interval"`
	MaxPostingsPerCycle int           `yaml:"max_postings_per_cycle" toml:"max_postings_per_cycle"`
}

// BackoffConfig drives the escalating pauses of the session loop.
type BackoffConfig struct {
	ShortPause           time.Duration `yaml:"short_pause" toml:"short_pause"`
	LongPause            time.Duration `yaml:"long_pause" toml:"long_pause"`
	FailureThreshold     int           `yaml:"failure_threshold" toml:"failure_threshold"`
	AuthPause            time.Duration `yaml:"auth_pause" toml:"auth_pause"`
	AuthLongPause        time.Duration `yaml:"auth_long_pause" toml:"auth_long_pause"`
	AuthFailureThreshold int           `yaml:"auth_failure_threshold" toml:"auth_failure_threshold"`
}

type RetryConfig struct {
	PageLoadAttempts int           `yaml:"page_load_attempts" toml:"page_load_attempts"`
	PageLoadPause    time.Duration `yaml:"page_load_pause" toml:"page_load_pause"`
	AuthAttempts     int           `yaml:"auth_attempts" toml:"auth_attempts"`
	AuthPause        time.Duration `yaml:"auth_retry_pause" toml:"auth_retry_pause"`
}

// PacingConfig scales every inter-step and per-character delay.
type PacingConfig struct {
	StepFactor           float64       `yaml:"step_factor" toml:"step_factor"`
	TypingFactor         float64       `yaml:"typing_factor" toml:"typing_factor"`
	StepDelay            time.Duration `yaml:"step_delay" toml:"step_delay"`
	TypingDelay          time.Duration `yaml:"typing_delay" toml:"typing_delay"`
	NavigationsPerMinute float64       `yaml:"navigations_per_minute" toml:"navigations_per_minute"`
}

type BrowserConfig struct {
	Headless          bool          `yaml:"headless" toml:"headless"`
	UserAgent         string        `yaml:"user_agent" toml:"user_agent"`
	Locale            string        `yaml:"locale" toml:"locale"`
	ViewportWidth     int           `yaml:"viewport_width" toml:"viewport_width"`
	ViewportHeight    int           `yaml:"viewport_height" toml:"viewport_height"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" toml:"navigation_timeout"`
	ElementWait       time.Duration `yaml:"element_wait" toml:"element_wait"`
	CookiesPath       string        `yaml:"cookies_path" toml:"cookies_path"`
	ScreenshotDir     string        `yaml:"screenshot_dir" toml:"screenshot_dir"`
}

type MatcherConfig struct {
	CurrencyMarkers   []string `yaml:"currency_markers" toml:"currency_markers"`
	MaxAncestorLevels int      `yaml:"max_ancestor_levels" toml:"max_ancestor_levels"`
	MinCardMarkup     int      `yaml:"min_card_markup" toml:"min_card_markup"`
	MinFallbackMarkup int      `yaml:"min_fallback_markup" toml:"min_fallback_markup"`
	ContainerSelector string   `yaml:"container_selector" toml:"container_selector"`
}

// SelectorConfig keeps every markup-specific lookup out of the code.
type SelectorConfig struct {
	LoginSwitchText  string   `yaml:"login_switch_text" toml:"login_switch_text"`
	UsernameInput    string   `yaml:"username_input" toml:"username_input"`
	PasswordInput    string   `yaml:"password_input" toml:"password_input"`
	SubmitText       string   `yaml:"submit_text" toml:"submit_text"`
	ChatButtonText   string   `yaml:"chat_button_text" toml:"chat_button_text"`
	ChatButtonTokens []string `yaml:"chat_button_tokens" toml:"chat_button_tokens"`
	ChatStartWord    string   `yaml:"chat_start_word" toml:"chat_start_word"`
	EmptyChatMarker  string   `yaml:"empty_chat_marker" toml:"empty_chat_marker"`
	MessageBubble    string   `yaml:"message_bubble" toml:"message_bubble"`
	MessageTextarea  string   `yaml:"message_textarea" toml:"message_textarea"`
	MessageInputs    []string `yaml:"message_inputs" toml:"message_inputs"`
	ChallengeMarkers []string `yaml:"challenge_markers" toml:"challenge_markers"`
}

type StoreConfig struct {
	Driver     string `yaml:"driver" toml:"driver"` // sqlite, postgres, file
	Path       string `yaml:"path" toml:"path"`
	DSN        string `yaml:"dsn" toml:"dsn"`
	ImportFile string `yaml:"import_file" toml:"import_file"`
}

type NotifyConfig struct {
	TelegramToken  string `yaml:"telegram_token" toml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id" toml:"telegram_chat_id"`
}

type StatusConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when no file overrides a field.
func Default() Config {
	return Config{
		Platform: PlatformConfig{
			LoginURL:   "https://repetit.ru/lk/loginwithshortcode",
			ListingURL: "https://repetit.ru/lk/teacher/neworders",
		},
		Outreach: OutreachConfig{
			Message:    "Здравствуйте! Я готов помочь вам с занятиями.",
			Categories: []string{"Математика"},
		},
		Schedule: ScheduleConfig{
			CheckInterval:       60 * time.Second,
			MaxPostingsPerCycle: 10,
		},
		Backoff: BackoffConfig{
			ShortPause:           30 * time.Second,
			LongPause:            5 * time.Minute,
			FailureThreshold:     3,
			AuthPause:            30 * time.Second,
			AuthLongPause:        15 * time.Minute,
			AuthFailureThreshold: 5,
		},
		Retry: RetryConfig{
			PageLoadAttempts: 3,
			PageLoadPause:    5 * time.Second,
			AuthAttempts:     2,
			AuthPause:        5 * time.Second,
		},
		Pacing: PacingConfig{
			StepFactor:           1,
			TypingFactor:         1,
			StepDelay:            2 * time.Second,
			TypingDelay:          80 * time.Millisecond,
			NavigationsPerMinute: 20,
		},
		Browser: BrowserConfig{
			Headless:          true,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
			Locale:            "ru-RU",
			ViewportWidth:     1366,
			ViewportHeight:    900,
			NavigationTimeout: 30 * time.Second,
			ElementWait:       10 * time.Second,
			CookiesPath:       ".cookies/cookies.json",
			ScreenshotDir:     filepath.Join("logs", "screenshots"),
		},
		Matcher: MatcherConfig{
			CurrencyMarkers:   []string{"₽", "руб"},
			MaxAncestorLevels: 10,
			MinCardMarkup:     500,
			MinFallbackMarkup: 300,
			ContainerSelector: "div",
		},
		Selectors: SelectorConfig{
			LoginSwitchText:  "Войти с логином и паролем",
			UsernameInput:    "input[placeholder='логин или номер телефона']",
			PasswordInput:    "input[placeholder='пароль']",
			SubmitText:       "Войти",
			ChatButtonText:   "Начать чат с клиентом",
			ChatButtonTokens: []string{"чат", "клиент"},
			ChatStartWord:    "начать",
			EmptyChatMarker:  "[data-testid='empty-chat']",
			MessageBubble:    "div.css-146c3p1[dir='auto']",
			MessageTextarea:  "textarea",
			MessageInputs:    []string{"input[type='text']", "[contenteditable='true']"},
			ChallengeMarkers: []string{"Just a moment", "Attention Required", "Cloudflare"},
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   filepath.Join(".cache", "processed.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the config file at path (yaml, yml or toml; a missing file
// keeps the defaults), then applies .env, environment variables and the
// OS keyring, and validates the result.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.Credentials.Password == "" && cfg.Credentials.Login != "" {
		if pw, err := keyring.Get(KeyringService, cfg.Credentials.Login); err == nil {
			cfg.Credentials.Password = strings.TrimSpace(pw)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("LOGIN"); v != "" {
		cfg.Credentials.Login = v
	}
	if v := os.Getenv("PASSWORD"); v != "" {
		cfg.Credentials.Password = v
	}
	if v := os.Getenv("OUTREACH_MESSAGE"); v != "" {
		cfg.Outreach.Message = v
	}
	if v := os.Getenv("OUTREACH_SEND_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid OUTREACH_SEND_ENABLED: %w", err)
		}
		cfg.Outreach.SendEnabled = enabled
	}
	if v := os.Getenv("OUTREACH_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("OUTREACH_STATUS_ADDR"); v != "" {
		cfg.Status.Addr = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notify.TelegramToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Notify.TelegramChatID = id
	}
	return nil
}

// Validate checks if the configuration is usable by the agent.
func (c Config) Validate() error {
	if c.Credentials.Login == "" || c.Credentials.Password == "" {
		return fmt.Errorf("login and password are required (LOGIN/PASSWORD or keyring)")
	}
	if c.Platform.LoginURL == "" || c.Platform.ListingURL == "" {
		return fmt.Errorf("platform login_url and listing_url are required")
	}
	if strings.TrimSpace(c.Outreach.Message) == "" {
		return fmt.Errorf("outreach message must not be empty")
	}
	if len(c.Outreach.Categories) == 0 {
		return fmt.Errorf("at least one outreach category is required")
	}
	if c.Schedule.CheckInterval <= 0 {
		return fmt.Errorf("schedule check_interval must be greater than 0")
	}
	if c.Schedule.MaxPostingsPerCycle <= 0 {
		return fmt.Errorf("schedule max_postings_per_cycle must be greater than 0")
	}
	if c.Backoff.FailureThreshold < 1 || c.Backoff.AuthFailureThreshold < 1 {
		return fmt.Errorf("backoff thresholds must be at least 1")
	}
	if c.Retry.PageLoadAttempts <= 0 || c.Retry.AuthAttempts <= 0 {
		return fmt.Errorf("retry attempts must be greater than 0")
	}
	if c.Pacing.StepFactor < 0 || c.Pacing.TypingFactor < 0 {
		return fmt.Errorf("pacing factors must not be negative")
	}
	if c.Matcher.MaxAncestorLevels <= 0 {
		return fmt.Errorf("matcher max_ancestor_levels must be greater than 0")
	}
	switch c.Store.Driver {
	case "sqlite", "file":
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required for driver %q", c.Store.Driver)
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store dsn is required for driver postgres")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Notify.TelegramToken != "" && c.Notify.TelegramChatID == 0 {
		return fmt.Errorf("telegram_chat_id is required when telegram_token is set")
	}
	return nil
}

// Redacted returns a copy with secrets masked, for printing.
func (c Config) Redacted() Config {
	if c.Credentials.Password != "" {
		c.Credentials.Password = "***"
	}
	if c.Notify.TelegramToken != "" {
		c.Notify.TelegramToken = "***"
	}
	if c.Store.DSN != "" {
		c.Store.DSN = "***"
	}
	return c
}
