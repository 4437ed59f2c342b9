package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"review-scraper/config"
	"review-scraper/models"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestApplyConfigFile_FlagsWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
limit: 100
headless: true
min_date: "2020-01-01"
browser:
  settle: 3s
`), 0600))

	cfg := config.GetDefaultConfig()
	var configPath string
	f := pflag.NewFlagSet("review-scraper", pflag.ContinueOnError)
	bindFlags(f, cfg, &configPath)
	require.NoError(t, f.Parse([]string{"--config", path, "-l", "40", "--settle", "500ms"}))

	require.NoError(t, applyConfigFile(f, configPath, cfg))

	assert.Equal(t, 40, cfg.Limit)
	assert.Equal(t, 500*time.Millisecond, cfg.Browser.Settle)
	assert.True(t, cfg.Headless)
	assert.Equal(t, "2020-01-01", cfg.MinDate)
	assert.Equal(t, config.DefaultOutputFile, cfg.File)
}

func TestRun_ConfigErrorsBeforeBrowser(t *testing.T) {
	tests := []struct {
		name string
		cfg  func() *config.Config
	}{
		{"date bound without resume", func() *config.Config {
			c := config.GetDefaultConfig()
			c.URL = "https://example.com/acme"
			c.MaxDate = "2020-01-01"
			return c
		}},
		{"no credentials", func() *config.Config {
			c := config.GetDefaultConfig()
			c.URL = "https://example.com/acme"
			return c
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			err := run(testContext(t), tt.cfg())

			var cfgErr *config.ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestRun_EmptyTargetListExitsCleanly(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	targets := filepath.Join(dir, "companies.csv")
	require.NoError(t, os.WriteFile(targets, []byte("name,url\n"), 0600))

	cfg := config.GetDefaultConfig()
	cfg.TargetsFile = targets
	cfg.Username, cfg.Password = "jane@example.com", "hunter2"
	cfg.Browser.UserDataDir = filepath.Join(dir, "profile")

	require.NoError(t, run(testContext(t), cfg))
	assert.NoDirExists(t, cfg.Browser.UserDataDir, "browser never started")
}

func TestReplayCmd(t *testing.T) {
	dir := t.TempDir()
	page := func(date string, titles ...string) string {
		var b strings.Builder
		b.WriteString(`<html><body><ol class="empReviews">`)
		for _, title := range titles {
			b.WriteString(`<li class="empReview"><time datetime="` + date + `">` + date + `</time>` +
				`<a class="summary">"` + title + `"</a></li>`)
		}
		b.WriteString(`</ol></body></html>`)
		return b.String()
	}
	p1 := filepath.Join(dir, "acme_p0001.html")
	p2 := filepath.Join(dir, "acme_p0002.html")
	require.NoError(t, os.WriteFile(p1, []byte(page("2019-12-01", "one", "two")), 0600))
	require.NoError(t, os.WriteFile(p2, []byte(page("2020-02-01", "three")), 0600))

	tests := []struct {
		name  string
		args  []string
		rows  int
		fails bool
	}{
		{"all pages", []string{p1, p2}, 3, false},
		{"date bound", []string{"--max-date", "2019-11-01", p1, p2}, 2, false},
		{"missing page keeps earlier rows", []string{p1, filepath.Join(dir, "acme_p0003.html")}, 2, true},
		{"bad date", []string{"--min-date", "yesterday", p1}, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "acme.csv")
			var stderr bytes.Buffer
			root := &cobra.Command{Use: "review-scraper", SilenceUsage: true, SilenceErrors: true}
			root.AddCommand(newReplayCmd())
			root.SetArgs(append([]string{"replay", "-f", out, "--log-level", "warn"}, tt.args...))
			root.SetErr(&stderr)

			err := root.Execute()
			if tt.fails {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			if tt.rows < 0 {
				assert.NoFileExists(t, out)
				return
			}
			f, err := os.Open(out)
			require.NoError(t, err)
			defer f.Close()
			rows, err := csv.NewReader(f).ReadAll()
			require.NoError(t, err)
			assert.Len(t, rows, tt.rows+1)
			assert.Equal(t, models.Schema, rows[0])
		})
	}
}

func TestStorePasswordCmd(t *testing.T) {
	keyring.MockInit()

	var out bytes.Buffer
	root := &cobra.Command{Use: "review-scraper"}
	root.AddCommand(newStorePasswordCmd())
	root.SetArgs([]string{"store-password", "jane@example.com"})
	root.SetIn(strings.NewReader("hunter2\n"))
	root.SetOut(&out)

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Stored password for jane@example.com")

	pw, err := keyring.Get(config.KeyringService, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)
}
