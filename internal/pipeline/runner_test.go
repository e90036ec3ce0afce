package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/gathernomics/internal/acquire"
	"github.com/JonMunkholm/gathernomics/internal/archive"
	"github.com/JonMunkholm/gathernomics/internal/core"
	_ "github.com/JonMunkholm/gathernomics/internal/core/filters"
	"github.com/JonMunkholm/gathernomics/internal/logging"
	"github.com/JonMunkholm/gathernomics/internal/metrics"
)

// ============================================================================
// Fixtures
// ============================================================================

const gdpCSV = `REF_DATE,GEO,Seasonal adjustment,Prices,North American Industry Classification System (NAICS),SCALAR_FACTOR,VALUE
2019-01,Canada,Seasonally adjusted at annual rates,Chained (2007) dollars,All industries,millions,2000
2019-01,Canada,Seasonally adjusted at annual rates,Current prices,All industries,millions,2100
2019-04,Canada,Seasonally adjusted at annual rates,Chained (2007) dollars,All industries,millions,2050
`

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newStatsCan(t *testing.T) *httptest.Server {
	t.Helper()
	gdp := buildZip(t, map[string]string{
		"36100104.csv":          gdpCSV,
		"36100104_MetaData.csv": "Cube Title\nGDP\n",
	})

	r := chi.NewRouter()
	r.Get("/36100104-eng.zip", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Length", strconv.Itoa(len(gdp)))
		w.Write(gdp)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newDownloader(t *testing.T) *acquire.Downloader {
	t.Helper()
	d, err := acquire.NewDownloader(acquire.Options{
		StagingDir: filepath.Join(t.TempDir(), "zips"),
		Now:        func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return d
}

func gdpTable(srv *httptest.Server) core.TableDescriptor {
	return core.TableDescriptor{
		Name:       "GDP",
		URL:        srv.URL + "/36100104-eng.zip",
		Category:   "Economy",
		Indicator:  "GDP",
		Frequency:  core.FrequencyQuarterly,
		Source:     core.SourceStatsCan,
		Enabled:    true,
		DataFilter: "gdp",
	}
}

type upsert struct {
	tableID int64
	rec     core.Record
}

type fakeStore struct {
	mu        sync.Mutex
	tables    map[string]int64
	updated   map[string]time.Time
	upserts   []upsert
	ensureErr error
	upsertErr error
	countErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tables: map[string]int64{}, updated: map[string]time.Time{}}
}

func (s *fakeStore) EnsureSourceTable(_ context.Context, name string, _ core.SourceType, lastUpdate time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensureErr != nil {
		return 0, s.ensureErr
	}
	if _, ok := s.tables[name]; !ok {
		s.tables[name] = int64(len(s.tables) + 1)
	}
	s.updated[name] = lastUpdate
	return s.tables[name], nil
}

func (s *fakeStore) CountFactors(_ context.Context, tableID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErr != nil {
		return 0, s.countErr
	}
	var n int64
	for _, u := range s.upserts {
		if u.tableID == tableID {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) UpsertFactor(_ context.Context, tableID int64, rec core.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return false, s.upsertErr
	}
	s.upserts = append(s.upserts, upsert{tableID, rec})
	return true, nil
}

type fakeArchiver struct {
	keys []string
	err  error
}

func (a *fakeArchiver) Store(_ context.Context, ac *acquire.Context) (archive.ObjectInfo, error) {
	if a.err != nil {
		return archive.ObjectInfo{}, a.err
	}
	key := archive.Key(ac)
	a.keys = append(a.keys, key)
	return archive.ObjectInfo{Key: key}, nil
}

func wantGDPRecords() []core.Record {
	return []core.Record{
		{Value: 2_000_000_000, Indicator: "GDP", Category: "Economy", Date: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), Frequency: core.FrequencyQuarterly},
		{Value: 2_050_000_000, Indicator: "GDP", Category: "Economy", Date: time.Date(2019, 4, 1, 0, 0, 0, 0, time.UTC), Frequency: core.FrequencyQuarterly},
	}
}

// ============================================================================
// Run
// ============================================================================

func TestRun_EndToEnd(t *testing.T) {
	srv := newStatsCan(t)
	store := newFakeStore()
	arch := &fakeArchiver{}
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	gdp := gdpTable(srv)
	disabled := gdpTable(srv)
	disabled.Name, disabled.Enabled = "Disabled GDP", false
	noFilter := gdpTable(srv)
	noFilter.Name, noFilter.DataFilter = "Capital", "captial"
	missing := gdpTable(srv)
	missing.Name, missing.URL = "Missing", srv.URL+"/missing.zip"
	unknownSource := gdpTable(srv)
	unknownSource.Name, unknownSource.Source = "Other", core.SourceUnknown

	runner := NewRunner(newDownloader(t), Options{
		Store:    store,
		Archiver: arch,
		Metrics:  m,
		Collect:  true,
		Now:      func() time.Time { return fixedNow },
	})

	sum, err := runner.Run(context.Background(), []core.TableDescriptor{gdp, disabled, noFilter, missing, unknownSource})
	require.NoError(t, err)

	assert.NotEmpty(t, sum.RunID)
	require.Len(t, sum.Tables, 5)
	assert.Equal(t, 1, sum.Count(OutcomeLoaded))
	assert.Equal(t, 1, sum.Count(OutcomeDisabled))
	assert.Equal(t, 1, sum.Count(OutcomeNoFilter))
	assert.Equal(t, 2, sum.Count(OutcomeSkipped))
	assert.ErrorIs(t, sum.Tables[2].Err, core.ErrUnknownFilter)
	assert.ErrorIs(t, sum.Tables[3].Err, acquire.ErrSkipped)

	loaded := sum.Tables[0]
	assert.Equal(t, 3, loaded.Stats.Rows)
	assert.Equal(t, 2, loaded.Stats.Emitted)
	assert.Equal(t, 1, loaded.Stats.Rejected)
	assert.Equal(t, 2, loaded.Upserted)
	assert.Equal(t, int64(2), loaded.Stored)
	assert.Equal(t, int64(2), sum.Stored())
	assert.Equal(t, "GDP/2024-03-15T10:00:00.zip", loaded.Archived)

	if diff := cmp.Diff(wantGDPRecords(), sum.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, sum.Emitted())

	require.Len(t, store.upserts, 2)
	assert.Equal(t, int64(1), store.upserts[0].tableID)
	assert.Equal(t, fixedNow, store.updated["GDP"])
	assert.Equal(t, []string{"GDP/2024-03-15T10:00:00.zip"}, arch.keys)

	expected := `
# HELP gathernomics_tables_total Tables processed, by outcome.
# TYPE gathernomics_tables_total counter
gathernomics_tables_total{outcome="disabled"} 1
gathernomics_tables_total{outcome="loaded"} 1
gathernomics_tables_total{outcome="no_filter"} 1
gathernomics_tables_total{outcome="skipped"} 2
# HELP gathernomics_factors_upserted_total Financial factors inserted or updated.
# TYPE gathernomics_factors_upserted_total counter
gathernomics_factors_upserted_total 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"gathernomics_tables_total", "gathernomics_factors_upserted_total"))
}

func TestRun_WithoutStore(t *testing.T) {
	srv := newStatsCan(t)

	sum, err := NewRunner(newDownloader(t), Options{}).Run(context.Background(), []core.TableDescriptor{gdpTable(srv)})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Count(OutcomeLoaded))
	assert.Equal(t, 0, sum.Tables[0].Upserted)
	assert.Empty(t, sum.Records, "records are only kept when collecting")
}

func TestRun_KeepsRunID(t *testing.T) {
	srv := newStatsCan(t)
	ctx := logging.WithRun(context.Background(), "run-42")

	sum, err := NewRunner(newDownloader(t), Options{}).Run(ctx, []core.TableDescriptor{gdpTable(srv)})
	require.NoError(t, err)
	assert.Equal(t, "run-42", sum.RunID)
}

func TestRun_Only(t *testing.T) {
	srv := newStatsCan(t)
	other := gdpTable(srv)
	other.Name = "Other GDP"

	sum, err := NewRunner(newDownloader(t), Options{Only: []string{"Other GDP"}}).
		Run(context.Background(), []core.TableDescriptor{gdpTable(srv), other})
	require.NoError(t, err)

	require.Len(t, sum.Tables, 1)
	assert.Equal(t, "Other GDP", sum.Tables[0].Name)
}

func TestRun_FatalAcquisition(t *testing.T) {
	srv := newStatsCan(t)
	store := newFakeStore()

	// The same table twice with a frozen clock collides on the staged zip.
	sum, err := NewRunner(newDownloader(t), Options{Store: store}).
		Run(context.Background(), []core.TableDescriptor{gdpTable(srv), gdpTable(srv), gdpTable(srv)})
	require.Error(t, err)
	assert.True(t, acquire.IsFatal(err))

	require.Len(t, sum.Tables, 2, "run stops at the fatal table")
	assert.Equal(t, OutcomeLoaded, sum.Tables[0].Outcome)
	assert.Equal(t, OutcomeFailed, sum.Tables[1].Outcome)
	assert.Len(t, store.upserts, 2)
}

func TestRun_StoreErrors(t *testing.T) {
	srv := newStatsCan(t)

	t.Run("source table", func(t *testing.T) {
		store := newFakeStore()
		store.ensureErr = errors.New("connection reset")

		sum, err := NewRunner(newDownloader(t), Options{Store: store}).
			Run(context.Background(), []core.TableDescriptor{gdpTable(srv)})
		require.Error(t, err)
		assert.Equal(t, OutcomeFailed, sum.Tables[0].Outcome)
	})

	t.Run("upsert", func(t *testing.T) {
		store := newFakeStore()
		store.upsertErr = errors.New("constraint violation")

		sum, err := NewRunner(newDownloader(t), Options{Store: store}).
			Run(context.Background(), []core.TableDescriptor{gdpTable(srv)})
		require.Error(t, err)
		assert.Equal(t, OutcomeFailed, sum.Tables[0].Outcome)
		assert.Equal(t, 1, sum.Tables[0].Stats.Emitted)
	})

	t.Run("count is not fatal", func(t *testing.T) {
		store := newFakeStore()
		store.countErr = errors.New("statement timeout")

		sum, err := NewRunner(newDownloader(t), Options{Store: store}).
			Run(context.Background(), []core.TableDescriptor{gdpTable(srv)})
		require.NoError(t, err)
		assert.Equal(t, OutcomeLoaded, sum.Tables[0].Outcome)
		assert.Equal(t, 2, sum.Tables[0].Upserted)
		assert.Zero(t, sum.Tables[0].Stored)
	})
}

func TestRun_ArchiveFailureIsNotFatal(t *testing.T) {
	srv := newStatsCan(t)

	sum, err := NewRunner(newDownloader(t), Options{Archiver: &fakeArchiver{err: errors.New("bucket gone")}}).
		Run(context.Background(), []core.TableDescriptor{gdpTable(srv)})
	require.NoError(t, err)
	assert.Equal(t, OutcomeLoaded, sum.Tables[0].Outcome)
	assert.Empty(t, sum.Tables[0].Archived)
}

func TestRun_Cleanup(t *testing.T) {
	srv := newStatsCan(t)
	d := newDownloader(t)

	_, err := NewRunner(d, Options{Cleanup: true}).Run(context.Background(), []core.TableDescriptor{gdpTable(srv)})
	require.NoError(t, err)

	assert.Empty(t, d.Tracked())
	_, err = os.Stat(d.StagingDir())
	assert.True(t, os.IsNotExist(err), "staging dir should be removed")
}

func TestRun_NoCleanupKeepsFiles(t *testing.T) {
	srv := newStatsCan(t)
	d := newDownloader(t)

	_, err := NewRunner(d, Options{}).Run(context.Background(), []core.TableDescriptor{gdpTable(srv)})
	require.NoError(t, err)

	assert.NotEmpty(t, d.Tracked())
	for _, path := range d.Tracked() {
		_, err := os.Stat(path)
		assert.NoError(t, err, "tracked path %s should exist", path)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	srv := newStatsCan(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := NewRunner(newDownloader(t), Options{}).Run(ctx, []core.TableDescriptor{gdpTable(srv)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sum.Tables)
}

func TestRun_Empty(t *testing.T) {
	sum, err := NewRunner(newDownloader(t), Options{}).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, sum.Tables)
	assert.Zero(t, sum.Emitted())
}
