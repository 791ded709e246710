package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Telegram configuration
	BotToken  string `long:"bot-token" env:"TELEGRAM_BOT_TOKEN" description:"Telegram bot token (required)" required:"true"`
	ChannelID string `long:"channel-id" env:"TELEGRAM_CHANNEL_ID" description:"Telegram channel ID or @name (required)" required:"true"`
	IVRHash   string `long:"iv-rhash" env:"IV_RHASH" description:"Instant View rhash for t.me/iv deep links (optional)"`

	// Application configuration
	DatabasePath      string `long:"database-path" env:"DATABASE_PATH" default:"newsgram.db" description:"Path to the SQLite database file"`
	FeedsDir          string `long:"feeds-dir" env:"FEEDS_DIR" default:"./feeds" description:"Directory containing feed configuration files"`
	CheckInterval     int    `long:"check-interval" env:"CHECK_INTERVAL_MINUTES" default:"5" description:"Feed check interval in minutes"`
	MinSendInterval   int    `long:"min-send-interval" env:"MIN_INTERVAL_SECONDS" default:"4" description:"Minimum interval between channel posts in seconds"`
	MaxFetchRetries   int    `long:"max-retries" env:"MAX_RETRIES" default:"3" description:"Maximum HTTP fetch attempts per URL"`
	RetryBaseDelay    int    `long:"retry-base-delay" env:"RETRY_BASE_DELAY" default:"5" description:"Base delay for fetch retry backoff in seconds"`
	FloodFallbackWait int    `long:"flood-fallback-wait" env:"FLOOD_FALLBACK_WAIT" default:"30" description:"Wait in seconds when a flood error carries no retry hint"`
	RequeueOnFlood    bool   `long:"requeue-on-flood" env:"REQUEUE_ON_FLOOD" description:"Re-enqueue articles dropped by flood control instead of discarding them"`
	RenderTemplate    string `long:"render-template" env:"RENDER_TEMPLATE" default:"dark" description:"Card template used for rendered notifications (dark, light)"`
	SummaryBudget     int    `long:"summary-budget" env:"SUMMARY_BUDGET" default:"350" description:"Character budget for summarized descriptions"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Newsgram/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for same-day filtering and timestamps (e.g., UTC, Asia/Kolkata)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		BotToken:          raw.BotToken,
		ChannelID:         raw.ChannelID,
		IVRHash:           raw.IVRHash,
		DatabasePath:      raw.DatabasePath,
		FeedsDir:          raw.FeedsDir,
		CheckInterval:     raw.CheckInterval,
		MinSendInterval:   raw.MinSendInterval,
		MaxFetchRetries:   raw.MaxFetchRetries,
		RetryBaseDelay:    raw.RetryBaseDelay,
		FloodFallbackWait: raw.FloodFallbackWait,
		RequeueOnFlood:    raw.RequeueOnFlood,
		RenderTemplate:    raw.RenderTemplate,
		SummaryBudget:     raw.SummaryBudget,
		Port:              raw.Port,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
