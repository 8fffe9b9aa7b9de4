package commands

import (
	"bytes"
	"marketwatch/internal/condition"
	"marketwatch/internal/scanner"
	"marketwatch/internal/stepn"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
	account: "runner@example.com",
	password: "${MARKETWATCH_TEST_PASSWORD}",
	api: { min_delay_ms: 250, detail_cache_seconds: 60 },
	rules: [
		{
			title: "cheap sol runners",
			conditions: "%price < 5000000",
			conditions_on_stats: "%attr.Efficiency >= 200",
			params: {
				order: "lowest_price",
				chain: "sol",
				refresh: "true",
				page: "0",
				type: "sneakers_runner",
				gType: "",
				quality: "common",
				level: 5,
				bread: "",
			},
			page_end: 2,
			limit: 3,
			threshold: 5,
			threshold_file: "runners.json",
			image_enabled: true,
		},
		{
			title: "shoeboxes",
			params: { order: 1002, chain: 104, refresh: false, page: 1, type: 301 },
		},
	],
}`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("MARKETWATCH_TEST_PASSWORD", "hunter2")
	configFile = writeConfig(t, sampleConfig)

	config, err := loadConfig()
	require.NoError(t, err)
	require.Equal(t, "runner@example.com", config.Account)
	require.Equal(t, "hunter2", config.Password)

	expected := []scanner.Rule{
		{
			Title:           "cheap sol runners",
			Condition:       "%price < 5000000",
			DetailCondition: "%attr.Efficiency >= 200",
			Paging: stepn.Paging{
				Order:   stepn.OrderLowestPrice,
				Chain:   stepn.ChainSOL,
				Refresh: true,
				Page:    0,
				Type:    stepn.TypeRunner,
				Quality: stepn.QualityCommon,
				Level:   "5",
			},
			PageEnd:       2,
			Limit:         3,
			Threshold:     5,
			ThresholdFile: "runners.json",
			ImageEnabled:  true,
		},
		{
			Title: "shoeboxes",
			Paging: stepn.Paging{
				Order: stepn.OrderLatest,
				Chain: stepn.ChainBNB,
				Page:  1,
				Type:  stepn.TypeShoeboxesAll,
			},
			PageEnd: 1,
		},
	}
	if diff := cmp.Diff(expected, config.ScannerRules()); diff != "" {
		t.Fatalf("rules mismatch (-want +got):\n%s", diff)
	}

	opts := config.Api.Options()
	require.Equal(t, 250*time.Millisecond, opts.MinDelay)
	require.Equal(t, time.Minute, opts.DetailCacheTTL)
}

func TestLoadConfigLocalOverride(t *testing.T) {
	t.Setenv("MARKETWATCH_TEST_PASSWORD", "hunter2")
	configFile = writeConfig(t, sampleConfig)
	local := filepath.Join(filepath.Dir(configFile), "config.local.json5")
	require.NoError(t, os.WriteFile(local, []byte(`{ mention: "here", halt_on_first_match: true }`), 0600))

	config, err := loadConfig()
	require.NoError(t, err)
	require.Equal(t, "here", config.Mention)
	require.True(t, config.HaltOnFirstMatch)
	require.Len(t, config.Rules, 2)
}

func TestLoadConfigInvalid(t *testing.T) {
	cases := []struct {
		name     string
		contents string
	}{
		{name: "missing account", contents: `{ password: "x" }`},
		{name: "missing password", contents: `{ account: "a" }`},
		{name: "unknown enum", contents: `{ account: "a", password: "x", rules: [{ title: "r", params: { chain: "doge" } }] }`},
		{name: "bad refresh", contents: `{ account: "a", password: "x", rules: [{ title: "r", params: { refresh: "maybe" } }] }`},
		{name: "page end before page", contents: `{ account: "a", password: "x", rules: [{ title: "r", page_end: 1, params: { page: 3 } }] }`},
		{name: "session database without file", contents: `{ account: "a", password: "x", session: { database: true } }`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			configFile = writeConfig(t, tc.contents)
			_, err := loadConfig()
			require.Error(t, err)
		})
	}
}

func TestLoadConfigRejectsMalformedConditions(t *testing.T) {
	cases := []struct {
		name     string
		contents string
		field    string
	}{
		{
			name:     "listing condition",
			contents: `{ account: "a", password: "x", rules: [{ title: "r", conditions: "%price < " }] }`,
			field:    "conditions",
		},
		{
			name:     "detail condition",
			contents: `{ account: "a", password: "x", rules: [{ title: "r", conditions_on_stats: "%attr.Luck >= luck" }] }`,
			field:    "conditions_on_stats",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			configFile = writeConfig(t, tc.contents)
			_, err := loadConfig()
			require.ErrorIs(t, err, condition.ErrSyntax)
			require.ErrorContains(t, err, `rule "r": `+tc.field+":")
		})
	}
}

func TestApiOptionsDefaults(t *testing.T) {
	require.Equal(t, stepn.DefaultMinDelay, ApiConfig{}.Options().MinDelay)
	require.Less(t, ApiConfig{MinDelayMs: -1}.Options().MinDelay, time.Duration(0))
}

func TestSelectRules(t *testing.T) {
	rules := []scanner.Rule{{Title: "cheap runners"}, {Title: "legendary walkers"}}

	all, err := selectRules(rules, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	one, err := selectRules(rules, "legendary walkers")
	require.NoError(t, err)
	require.Equal(t, []scanner.Rule{{Title: "legendary walkers"}}, one)

	_, err = selectRules(rules, "Legendery walker")
	require.ErrorContains(t, err, `did you mean "legendary walkers"?`)

	_, err = selectRules(nil, "anything")
	require.ErrorContains(t, err, "no rules are configured")
}

func TestDriftCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"drift", "1060000", "1000000"})
	require.NoError(t, rootCmd.Execute())
	require.Equal(t, "6%\n", out.String())

	rootCmd.SetArgs([]string{"drift", "1", "0"})
	require.Error(t, rootCmd.Execute())
}
