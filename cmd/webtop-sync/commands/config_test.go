package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	"webtop-sync/internal/scrapers/webtop"

	"github.com/stretchr/testify/require"
)

func useConfigFile(t *testing.T, contents string) {
	path := filepath.Join(t.TempDir(), defaultConfigName)
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
	previous := *configPath
	*configPath = path
	t.Cleanup(func() { *configPath = previous })
}

func TestLoadConfig(t *testing.T) {
	useConfigFile(t, `{
		// comments are allowed
		credentials: { username: "file-user", password: "file-pass" },
		database: "school.db",
		portal: { navigation_timeout_ms: 1500 },
	}`)
	t.Setenv("HW_USERNAME", "env-user")
	t.Setenv("HW_PASSWORD", "")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}

	require.Equal(t, "env-user", cfg.Credentials.Username)
	require.Equal(t, "file-pass", cfg.Credentials.Password)
	require.Equal(t, "school.db", cfg.Database)
	require.Equal(t, 1500, cfg.Portal.NavigationMs)
	require.Equal(t, defaultConfig().Snapshots, cfg.Snapshots)
	require.Len(t, cfg.Daemon.Jobs, 2)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	previous := *configPath
	*configPath = filepath.Join(t.TempDir(), "missing.json5")
	t.Cleanup(func() { *configPath = previous })

	_, err := loadConfig()
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWebtopOptions(t *testing.T) {
	defaults := webtop.DefaultOptions()

	testCases := []struct {
		name   string
		portal PortalConfig
		check  func(t *testing.T, options webtop.Options)
	}{
		{
			name: "zero values keep defaults",
			check: func(t *testing.T, options webtop.Options) {
				require.Equal(t, defaults.LoginURL, options.LoginURL)
				require.Equal(t, defaults.NavigationTimeout, options.NavigationTimeout)
				require.Equal(t, defaults.SelectorTimeout, options.SelectorTimeout)
				require.Equal(t, defaults.PollAttempts, options.PollAttempts)
				require.Equal(t, defaults.SessionArtifacts, options.SessionArtifacts)
			},
		},
		{
			name: "milliseconds become durations",
			portal: PortalConfig{
				NavigationMs: 1500,
				SelectorMs:   250,
				PollMs:       20,
				PollAttempts: 7,
				ReadinessMs:  3000,
				SettleMs:     100,
				TypeDelayMs:  5,
			},
			check: func(t *testing.T, options webtop.Options) {
				require.Equal(t, 1500*time.Millisecond, options.NavigationTimeout)
				require.Equal(t, 250*time.Millisecond, options.SelectorTimeout)
				require.Equal(t, 20*time.Millisecond, options.PollInterval)
				require.Equal(t, 7, options.PollAttempts)
				require.Equal(t, 3*time.Second, options.ReadinessTimeout)
				require.Equal(t, 100*time.Millisecond, options.SettleDelay)
				require.Equal(t, 5*time.Millisecond, options.TypeDelay)
			},
		},
		{
			name: "urls and cookie override routes",
			portal: PortalConfig{
				LoginURL:      "https://portal.test/login",
				DashboardURL:  "https://portal.test/home",
				HomeworkURL:   "https://portal.test/Student_Card/11",
				ScheduleURL:   "https://portal.test/Student_Card/2",
				SessionCookie: "authToken",
			},
			check: func(t *testing.T, options webtop.Options) {
				require.Equal(t, "https://portal.test/login", options.LoginURL)
				homework := options.Routes[webtop.DestinationHomework]
				schedule := options.Routes[webtop.DestinationSchedule]
				require.Equal(t, "https://portal.test/home", homework.MenuURL)
				require.Equal(t, "https://portal.test/home", schedule.MenuURL)
				require.Equal(t, "https://portal.test/Student_Card/11", homework.DirectURL)
				require.Equal(t, "https://portal.test/Student_Card/2", schedule.DirectURL)
				require.Equal(t, defaults.Routes[webtop.DestinationHomework].ClickPath, homework.ClickPath)
				require.Equal(t, []string{"authToken"}, options.SessionArtifacts)
			},
		},
		{
			name:   "negative values keep defaults",
			portal: PortalConfig{NavigationMs: -1, PollAttempts: -3},
			check: func(t *testing.T, options webtop.Options) {
				require.Equal(t, defaults.NavigationTimeout, options.NavigationTimeout)
				require.Equal(t, defaults.PollAttempts, options.PollAttempts)
			},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			test.check(t, Config{Portal: test.portal}.webtopOptions())
		})
	}
}

func TestParseDay(t *testing.T) {
	now := time.Date(2025, 10, 27, 9, 0, 0, 0, time.UTC)

	testCases := []struct {
		text     string
		expected string
		fails    bool
	}{
		{text: "2025-10-30", expected: "2025-10-30"},
		{text: "today", expected: "2025-10-27"},
		{text: "tomorrow", expected: "2025-10-28"},
		{text: "zzz", fails: true},
	}

	for _, test := range testCases {
		t.Run(test.text, func(t *testing.T) {
			day, err := parseDay(test.text, now)
			if test.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expected, day)
		})
	}
}
