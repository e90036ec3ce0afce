package main

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/gathernomics/internal/config"
)

const gdpCSV = `REF_DATE,GEO,Seasonal adjustment,Prices,North American Industry Classification System (NAICS),SCALAR_FACTOR,VALUE
2019-01,Canada,Seasonally adjusted at annual rates,Chained (2007) dollars,All industries,millions,2000
2019-01,Canada,Seasonally adjusted at annual rates,Current prices,All industries,millions,2100
`

// clearEnv removes settings that would enable the database, archive or
// metrics endpoint during a test run.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"DATABASE_URL", "DB_URL", "DB_HOST", "ARCHIVE_ENDPOINT", "METRICS_ADDR",
		"TABLES", "OUTPUT_PATH", "STAGING_DIR", "TABLES_CONFIG", "CLEANUP",
	} {
		t.Setenv(name, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func newStatsCan(t *testing.T) *httptest.Server {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("36100104.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte(gdpCSV))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	body := buf.Bytes()

	r := chi.NewRouter()
	r.Get("/36100104-eng.zip", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Write(body)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func writeTables(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	doc := `{"tables": [
  {"name": "GDP", "url": "` + srv.URL + `/36100104-eng.zip", "category": "Economy",
   "indicator": "GDP", "frequency": "Quarterly", "data_filter": "gdp", "enabled": true},
  {"name": "Capital", "url": "` + srv.URL + `/capital.zip", "category": "Economy",
   "indicator": "Capital", "frequency": "Quarterly", "data_filter": "captial", "enabled": true}
]}`
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

// ============================================================================
// Commands
// ============================================================================

func TestFiltersCmd(t *testing.T) {
	out, err := execute(t, "filters")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 10)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, out, "gdp")
	assert.Contains(t, out, "import_export")
}

func TestRun_ExportsCSV(t *testing.T) {
	clearEnv(t)
	srv := newStatsCan(t)
	staging := filepath.Join(t.TempDir(), "zips")
	output := filepath.Join(t.TempDir(), "factors.csv")

	_, err := execute(t,
		"--env-file", filepath.Join(t.TempDir(), "missing.env"),
		"--config", writeTables(t, srv),
		"--staging-dir", staging,
		"--output", output,
		"--cleanup",
	)
	require.NoError(t, err)

	got, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "value,indicator,category,date,frequency\n2000000000,GDP,Economy,2019-01-01,QUARTERLY\n", string(got))

	_, err = os.Stat(staging)
	assert.True(t, os.IsNotExist(err), "staging dir should be cleaned up")
}

func TestRun_ExportsToStdout(t *testing.T) {
	clearEnv(t)
	srv := newStatsCan(t)

	out, err := execute(t,
		"--env-file", filepath.Join(t.TempDir(), "missing.env"),
		"--config", writeTables(t, srv),
		"--staging-dir", filepath.Join(t.TempDir(), "zips"),
		"--output", "-",
		"--table", "GDP",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "2000000000,GDP,Economy,2019-01-01,QUARTERLY")
}

func TestRun_MissingTablesConfig(t *testing.T) {
	clearEnv(t)

	_, err := execute(t,
		"--env-file", filepath.Join(t.TempDir(), "missing.env"),
		"--config", filepath.Join(t.TempDir(), "missing.json"),
		"--staging-dir", filepath.Join(t.TempDir(), "zips"),
	)
	assert.NoError(t, err, "a missing tables config is an empty run")
}

func TestRun_InvalidConfig(t *testing.T) {
	clearEnv(t)

	_, err := execute(t,
		"--env-file", filepath.Join(t.TempDir(), "missing.env"),
		"--metrics-addr", "localhost",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "METRICS_ADDR")
}

func TestRun_EnvFile(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("LOG_LEVEL=shouting\n"), 0o644))
	t.Setenv("LOG_LEVEL", "info")

	_, err := execute(t, "--env-file", envFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}

// ============================================================================
// Flag overrides
// ============================================================================

func TestOptionsApply(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--debug",
		"--config", "tables.yaml",
		"--database-url", "postgres://u@h/db",
		"--db-port", "6543",
		"--cleanup",
		"--table", "GDP",
		"--table", "Household Credit",
	}))

	cfg := &config.Config{
		Logging:  config.LoggingConfig{Level: "info"},
		Run:      config.RunConfig{TablesConfig: "config.json", OutputPath: "keep.csv"},
		Database: config.DatabaseConfig{Port: 5432, Name: "CanDevFinaceCanada"},
	}

	// Flags are bound to the options captured by RunE; re-read them from the flag set.
	opts := &options{}
	opts.debug, _ = cmd.Flags().GetBool("debug")
	opts.tables, _ = cmd.Flags().GetString("config")
	opts.databaseURL, _ = cmd.Flags().GetString("database-url")
	opts.dbPort, _ = cmd.Flags().GetInt("db-port")
	opts.cleanup, _ = cmd.Flags().GetBool("cleanup")
	opts.only, _ = cmd.Flags().GetStringSlice("table")
	opts.apply(cmd, cfg)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "tables.yaml", cfg.Run.TablesConfig)
	assert.Equal(t, "keep.csv", cfg.Run.OutputPath, "unset flags leave config alone")
	assert.Equal(t, "postgres://u@h/db", cfg.Database.URL)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "CanDevFinaceCanada", cfg.Database.Name)
	assert.True(t, cfg.Run.Cleanup)
	assert.Equal(t, []string{"GDP", "Household Credit"}, cfg.Run.Tables)
}
