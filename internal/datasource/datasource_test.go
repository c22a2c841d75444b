package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/miklabel/internal/observability"
	"github.com/huangsam/miklabel/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeDocs writes both documents into dir.
func writeDocs(t *testing.T, dir, repoSets, personSets string) {
	t.Helper()
	if repoSets != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, schema.RepoSetsDocument), []byte(repoSets), 0o644))
	}
	if personSets != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, schema.PersonSetsDocument), []byte(personSets), 0o644))
	}
}

// reloadCount reads the reload counter for document and outcome.
func reloadCount(t *testing.T, m *observability.Metrics, document, outcome string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "miklabel_reloads_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			labels := map[string]string{}
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["document"] == document && labels["outcome"] == outcome {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func newLoadedSource(t *testing.T) (*DataSource, string, *observability.Metrics) {
	t.Helper()
	dir := t.TempDir()
	writeDocs(t, dir, repoSetsJSON, personSetsJSON)
	m := observability.NewMetrics()
	ds := New(NewFileProvider(dir), nil, m)
	require.NoError(t, ds.Reload(context.Background()))
	return ds, dir, m
}

func TestFileProviderETag(t *testing.T) {
	dir := t.TempDir()
	writeDocs(t, dir, repoSetsJSON, "")
	p := NewFileProvider(dir)
	ctx := context.Background()

	first, err := p.Read(ctx, schema.RepoSetsDocument, "")
	require.NoError(t, err)
	assert.True(t, first.Changed)
	assert.Equal(t, []byte(repoSetsJSON), first.Content)
	assert.Equal(t, contentTag([]byte(repoSetsJSON)), first.ETag)

	second, err := p.Read(ctx, schema.RepoSetsDocument, first.ETag)
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Nil(t, second.Content)
	assert.Equal(t, first.ETag, second.ETag)

	_, err = p.Read(ctx, schema.PersonSetsDocument, "")
	assert.ErrorIs(t, err, os.ErrNotExist)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = p.Read(cancelled, schema.RepoSetsDocument, "")
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, "dir:"+dir, p.String())
}

func TestHTTPProvider(t *testing.T) {
	var mu sync.Mutex
	body := personSetsJSON
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		requests++
		if r.URL.Path != "/docs/"+schema.PersonSetsDocument {
			http.NotFound(w, r)
			return
		}
		tag := `"` + contentTag([]byte(body))[:16] + `"`
		if r.Header.Get("If-None-Match") == tag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", tag)
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	p, err := NewHTTPProvider(server.URL+"/docs", 0)
	require.NoError(t, err)
	assert.Equal(t, "url:"+server.URL+"/docs/", p.String())
	ctx := context.Background()

	first, err := p.Read(ctx, schema.PersonSetsDocument, "")
	require.NoError(t, err)
	assert.True(t, first.Changed)
	assert.Equal(t, []byte(personSetsJSON), first.Content)
	assert.NotEmpty(t, first.ETag)

	second, err := p.Read(ctx, schema.PersonSetsDocument, first.ETag)
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Equal(t, first.ETag, second.ETag)

	mu.Lock()
	body = `{"solo": {"people": ["zed"]}}`
	mu.Unlock()
	third, err := p.Read(ctx, schema.PersonSetsDocument, first.ETag)
	require.NoError(t, err)
	assert.True(t, third.Changed)
	assert.NotEqual(t, first.ETag, third.ETag)

	_, err = p.Read(ctx, schema.RepoSetsDocument, "")
	assert.ErrorContains(t, err, "unexpected status 404")

	mu.Lock()
	assert.Equal(t, 4, requests)
	mu.Unlock()
}

func TestHTTPProviderFallsBackToContentTag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(repoSetsJSON))
	}))
	defer server.Close()

	p, err := NewHTTPProvider(server.URL, time.Second)
	require.NoError(t, err)

	first, err := p.Read(context.Background(), schema.RepoSetsDocument, "")
	require.NoError(t, err)
	assert.True(t, first.Changed)
	assert.Equal(t, contentTag([]byte(repoSetsJSON)), first.ETag)

	second, err := p.Read(context.Background(), schema.RepoSetsDocument, first.ETag)
	require.NoError(t, err)
	assert.False(t, second.Changed)
}

func TestNewHTTPProviderInvalidURL(t *testing.T) {
	_, err := NewHTTPProvider("://bad", 0)
	assert.ErrorContains(t, err, "invalid data source URL")
}

func TestNewDataSourceIsEmpty(t *testing.T) {
	ds := New(NewFileProvider(t.TempDir()), nil, nil)
	assert.Equal(t, 0, ds.RepoDataSet().Len())
	assert.Empty(t, ds.PersonSetNames())
	_, ok := ds.PersonSet("core")
	assert.False(t, ok)
	assert.ErrorIs(t, ds.Ready(context.Background()), ErrNotLoaded)
}

func TestReload(t *testing.T) {
	ds, dir, m := newLoadedSource(t)
	require.NoError(t, ds.Ready(context.Background()))

	assert.Equal(t, []string{"aspnet", "runtime"}, ds.RepoDataSet().RepoSetNames())
	assert.Equal(t, []string{"all", "core", "leads"}, ds.PersonSetNames())
	core, ok := ds.PersonSet("core")
	require.True(t, ok)
	assert.Equal(t, []string{"alice", "bob", "Carol"}, core.People)

	status := ds.Status()
	assert.Equal(t, "dir:"+dir, status.Source)
	assert.Equal(t, 2, status.RepoSets)
	assert.Equal(t, 3, status.PersonSets)
	assert.Equal(t, contentTag([]byte(repoSetsJSON)), status.RepoSetsETag)
	assert.Equal(t, contentTag([]byte(personSetsJSON)), status.PersonSetsETag)
	assert.False(t, status.LastReload.IsZero())

	assert.Equal(t, 1.0, reloadCount(t, m, schema.RepoSetsDocument, observability.ReloadChanged))
	assert.Equal(t, 1.0, reloadCount(t, m, schema.PersonSetsDocument, observability.ReloadChanged))
}

func TestReloadUnchangedKeepsSnapshot(t *testing.T) {
	ds, _, m := newLoadedSource(t)
	before := ds.RepoDataSet()

	require.NoError(t, ds.Reload(context.Background()))
	assert.Same(t, before, ds.RepoDataSet())
	assert.Equal(t, 1.0, reloadCount(t, m, schema.RepoSetsDocument, observability.ReloadUnchanged))
	assert.Equal(t, 1.0, reloadCount(t, m, schema.PersonSetsDocument, observability.ReloadUnchanged))
}

func TestReloadFailureKeepsPreviousData(t *testing.T) {
	ds, dir, m := newLoadedSource(t)
	before := ds.Status()

	writeDocs(t, dir, `{"broken": {"repos": [{"org": "x"}]}}`, "")
	err := ds.Reload(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaViolation)
	assert.ErrorContains(t, err, "reload "+schema.RepoSetsDocument)

	// Repo sets keep the old snapshot and etag
	after := ds.Status()
	assert.Equal(t, before.RepoSetsETag, after.RepoSetsETag)
	assert.Equal(t, []string{"aspnet", "runtime"}, ds.RepoDataSet().RepoSetNames())
	assert.Equal(t, 1.0, reloadCount(t, m, schema.RepoSetsDocument, observability.ReloadFailed))
	assert.Equal(t, 1.0, reloadCount(t, m, schema.PersonSetsDocument, observability.ReloadUnchanged))

	// A fixed document is picked up by the next reload
	writeDocs(t, dir, `{"solo": {"repos": [{"org": "o", "repo": "r", "inclusionLevel": "AllItems"}]}}`, "")
	require.NoError(t, ds.Reload(context.Background()))
	assert.Equal(t, []string{"solo"}, ds.RepoDataSet().RepoSetNames())
}

func TestReloadTracksDocumentsSeparately(t *testing.T) {
	ds, dir, _ := newLoadedSource(t)
	before := ds.Status()

	writeDocs(t, dir, "", `{"solo": {"people": ["zed"]}}`)
	require.NoError(t, ds.Reload(context.Background()))

	after := ds.Status()
	assert.Equal(t, before.RepoSetsETag, after.RepoSetsETag)
	assert.NotEqual(t, before.PersonSetsETag, after.PersonSetsETag)
	assert.Equal(t, []string{"solo"}, ds.PersonSetNames())
	assert.Equal(t, 2, ds.RepoDataSet().Len())
}

func TestReloadBothFailuresAreJoined(t *testing.T) {
	ds := New(NewFileProvider(t.TempDir()), nil, nil)
	err := ds.Reload(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, schema.RepoSetsDocument)
	assert.ErrorContains(t, err, schema.PersonSetsDocument)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.ErrorIs(t, ds.Ready(context.Background()), ErrNotLoaded)
}

func TestReloadImportCycleKeepsPreviousPersonSets(t *testing.T) {
	ds, dir, _ := newLoadedSource(t)

	writeDocs(t, dir, "", `{"a": {"import": ["b"]}, "b": {"import": ["a"]}}`)
	err := ds.Reload(context.Background())
	assert.ErrorIs(t, err, ErrImportCycle)
	assert.Equal(t, []string{"all", "core", "leads"}, ds.PersonSetNames())
}

func TestConcurrentReadersDuringReload(t *testing.T) {
	ds, dir, _ := newLoadedSource(t)
	alternate := `{"solo": {"people": ["zed"]}}`

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				names := ds.PersonSetNames()
				// Every snapshot is one of the two complete documents
				if len(names) != 1 && len(names) != 3 {
					t.Errorf("unexpected snapshot: %v", names)
					return
				}
				_ = ds.RepoDataSet().AllRepos()
			}
		}()
	}

	for i := range 10 {
		doc := personSetsJSON
		if i%2 == 0 {
			doc = alternate
		}
		writeDocs(t, dir, "", doc)
		require.NoError(t, ds.Reload(context.Background()))
	}
	cancel()
	wg.Wait()
}

func TestWatchReloadsOnChange(t *testing.T) {
	ds, dir, _ := newLoadedSource(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ds.Watch(ctx, dir, 20*time.Millisecond) }()

	// Give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	writeDocs(t, dir, "", `{"solo": {"people": ["zed"]}}`)

	require.Eventually(t, func() bool {
		_, ok := ds.PersonSet("solo")
		return ok
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestWatchMissingDir(t *testing.T) {
	ds := New(NewFileProvider(t.TempDir()), nil, nil)
	err := ds.Watch(context.Background(), filepath.Join(t.TempDir(), "missing"), 0)
	assert.ErrorContains(t, err, "failed to watch")
}

func TestPoll(t *testing.T) {
	ds, dir, _ := newLoadedSource(t)

	err := ds.Poll(context.Background(), 0)
	assert.ErrorContains(t, err, "poll interval must be positive")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ds.Poll(ctx, 10*time.Millisecond) }()

	writeDocs(t, dir, `{"solo": {}}`, "")
	require.Eventually(t, func() bool {
		_, ok := ds.RepoDataSet().RepoSet("solo")
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
