package commands

import (
	"fmt"
	"os"
	"time"
	"webtop-sync/internal/components/browser"
	"webtop-sync/internal/pipeline"
	"webtop-sync/internal/scrapers/webtop"
	"webtop-sync/lib/configutil"

	"dario.cat/mergo"
)

const defaultConfigName = "webtop-sync.json5"

type CredentialsConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PortalConfig overrides the portal urls and waits, durations are in
// milliseconds and zero keeps the default.
type PortalConfig struct {
	LoginURL      string `json:"login_url"`
	DashboardURL  string `json:"dashboard_url"`
	HomeworkURL   string `json:"homework_url"`
	ScheduleURL   string `json:"schedule_url"`
	NavigationMs  int    `json:"navigation_timeout_ms"`
	SelectorMs    int    `json:"selector_timeout_ms"`
	PollMs        int    `json:"poll_interval_ms"`
	PollAttempts  int    `json:"poll_attempts"`
	ReadinessMs   int    `json:"readiness_timeout_ms"`
	SettleMs      int    `json:"settle_delay_ms"`
	TypeDelayMs   int    `json:"type_delay_ms"`
	SessionCookie string `json:"session_cookie"`
}

type APIConfig struct {
	BaseURL string                `json:"base_url"`
	Lessons webtop.LessonsRequest `json:"lessons"`
}

type SnapshotsConfig struct {
	Disabled bool   `json:"disabled"`
	Dir      string `json:"dir"`
	// LifetimeHours is how long raw pages are kept, zero keeps them forever.
	LifetimeHours int `json:"lifetime_hours"`
}

type DaemonJob struct {
	Cron   string `json:"cron"`
	Kind   string `json:"kind"`
	Window string `json:"window"`
}

type DaemonConfig struct {
	Jobs             []DaemonJob `json:"jobs"`
	PerfStatsSeconds int         `json:"perf_stats_seconds"`
}

type Config struct {
	Credentials    CredentialsConfig     `json:"credentials"`
	Timezone       string                `json:"timezone"`
	Database       string                `json:"database"`
	HomeworkSource string                `json:"homework_source"`
	Portal         PortalConfig          `json:"portal"`
	Browser        browser.ChromeOptions `json:"browser"`
	API            APIConfig             `json:"api"`
	Snapshots      SnapshotsConfig       `json:"snapshots"`
	Daemon         DaemonConfig          `json:"daemon"`
}

func defaultConfig() Config {
	return Config{
		Database:       "webtop-sync.db",
		HomeworkSource: string(pipeline.SourcePage),
		API: APIConfig{
			BaseURL: webtop.DefaultAPIBaseURL,
		},
		Snapshots: SnapshotsConfig{
			Dir:           ".webtop-sync/snapshots",
			LifetimeHours: 24 * 30,
		},
		Daemon: DaemonConfig{
			Jobs: []DaemonJob{
				{Cron: "30 6 * * *", Kind: "both", Window: string(pipeline.WindowDaily)},
				{Cron: "0 20 * * 6", Kind: "both", Window: string(pipeline.WindowHistorical)},
			},
			PerfStatsSeconds: 60,
		},
	}
}

// loadConfig reads the config file when there is one and applies the
// HW_USERNAME and HW_PASSWORD environment variables on top.
func loadConfig() (Config, error) {
	cfg := defaultConfig()

	var (
		read Config
		err  error
	)
	if *configPath != "" {
		read, err = configutil.ReadConfig[Config](*configPath)
	} else {
		read, err = configutil.ReadRecursively[Config](defaultConfigName)
	}
	switch {
	case err == nil:
		err = mergo.Merge(&cfg, read, mergo.WithOverride)
		if err != nil {
			return Config{}, fmt.Errorf("merge config: %w", err)
		}
	case os.IsNotExist(err) && *configPath == "":
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if username := os.Getenv("HW_USERNAME"); username != "" {
		cfg.Credentials.Username = username
	}
	if password := os.Getenv("HW_PASSWORD"); password != "" {
		cfg.Credentials.Password = password
	}
	return cfg, nil
}

func ms(value int, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return time.Duration(value) * time.Millisecond
}

func (c Config) webtopOptions() webtop.Options {
	options := webtop.DefaultOptions()
	portal := c.Portal

	if portal.LoginURL != "" {
		options.LoginURL = portal.LoginURL
	}
	homework := options.Routes[webtop.DestinationHomework]
	schedule := options.Routes[webtop.DestinationSchedule]
	if portal.DashboardURL != "" {
		homework.MenuURL = portal.DashboardURL
		schedule.MenuURL = portal.DashboardURL
	}
	if portal.HomeworkURL != "" {
		homework.DirectURL = portal.HomeworkURL
	}
	if portal.ScheduleURL != "" {
		schedule.DirectURL = portal.ScheduleURL
	}
	options.Routes[webtop.DestinationHomework] = homework
	options.Routes[webtop.DestinationSchedule] = schedule

	options.NavigationTimeout = ms(portal.NavigationMs, options.NavigationTimeout)
	options.SelectorTimeout = ms(portal.SelectorMs, options.SelectorTimeout)
	options.PollInterval = ms(portal.PollMs, options.PollInterval)
	options.ReadinessTimeout = ms(portal.ReadinessMs, options.ReadinessTimeout)
	options.SettleDelay = ms(portal.SettleMs, options.SettleDelay)
	options.TypeDelay = ms(portal.TypeDelayMs, options.TypeDelay)
	if portal.PollAttempts > 0 {
		options.PollAttempts = portal.PollAttempts
	}
	if portal.SessionCookie != "" {
		options.SessionArtifacts = []string{portal.SessionCookie}
	}
	return options
}
