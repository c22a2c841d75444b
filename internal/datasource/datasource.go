// Package datasource keeps the repo set and person set documents in memory
// and reloads them when their content changes.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/internal/observability"
	"github.com/huangsam/miklabel/schema"
)

// ErrNotLoaded is returned by Ready until both documents loaded once.
var ErrNotLoaded = errors.New("data source has not loaded yet")

type repoSnapshot struct {
	sets     *schema.RepoDataSet
	etag     string
	loadedAt time.Time
}

type personSnapshot struct {
	sets     map[string]schema.PersonSet
	etag     string
	loadedAt time.Time
}

// DataSource holds immutable snapshots of both documents. Readers load
// snapshots atomically and never block; reloads build a new snapshot and
// swap it in.
type DataSource struct {
	provider contract.ContentProvider
	logger   *slog.Logger
	metrics  *observability.Metrics

	swapMu     sync.Mutex // held only for snapshot assignment
	repoSets   atomic.Pointer[repoSnapshot]
	personSets atomic.Pointer[personSnapshot]
}

// New returns an empty DataSource reading from provider. A nil logger
// discards logs and nil metrics are not recorded.
func New(provider contract.ContentProvider, logger *slog.Logger, metrics *observability.Metrics) *DataSource {
	if logger == nil {
		logger = contract.DiscardLogger()
	}
	ds := &DataSource{provider: provider, logger: logger, metrics: metrics}
	ds.repoSets.Store(&repoSnapshot{sets: schema.EmptyRepoDataSet()})
	ds.personSets.Store(&personSnapshot{sets: map[string]schema.PersonSet{}})
	return ds
}

// RepoDataSet returns the current repo set snapshot.
func (ds *DataSource) RepoDataSet() *schema.RepoDataSet {
	return ds.repoSets.Load().sets
}

// PersonSet returns the resolved person set with the given name.
func (ds *DataSource) PersonSet(name string) (schema.PersonSet, bool) {
	set, ok := ds.personSets.Load().sets[name]
	return set, ok
}

// PersonSetNames returns the person set names in sorted order.
func (ds *DataSource) PersonSetNames() []string {
	sets := ds.personSets.Load().sets
	names := make([]string, 0, len(sets))
	for name := range sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status describes the current snapshots.
func (ds *DataSource) Status() schema.DataSourceStatus {
	repos := ds.repoSets.Load()
	people := ds.personSets.Load()
	status := schema.DataSourceStatus{
		RepoSets:       repos.sets.Len(),
		PersonSets:     len(people.sets),
		RepoSetsETag:   repos.etag,
		PersonSetsETag: people.etag,
		LastReload:     repos.loadedAt,
	}
	if people.loadedAt.After(status.LastReload) {
		status.LastReload = people.loadedAt
	}
	if s, ok := ds.provider.(fmt.Stringer); ok {
		status.Source = s.String()
	}
	return status
}

// Ready reports ErrNotLoaded until both documents have loaded once.
func (ds *DataSource) Ready(context.Context) error {
	if ds.repoSets.Load().etag == "" || ds.personSets.Load().etag == "" {
		return ErrNotLoaded
	}
	return nil
}

// Reload refreshes both documents concurrently. A failing document keeps
// its previous snapshot; the failure is logged, counted and returned joined
// with the other document's error.
func (ds *DataSource) Reload(ctx context.Context) error {
	var wg sync.WaitGroup
	var repoErr, personErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		repoErr = ds.reloadRepoSets(ctx)
	}()
	go func() {
		defer wg.Done()
		personErr = ds.reloadPersonSets(ctx)
	}()
	wg.Wait()
	return errors.Join(repoErr, personErr)
}

func (ds *DataSource) reloadRepoSets(ctx context.Context) error {
	start := time.Now()
	current := ds.repoSets.Load()

	result, err := ds.provider.Read(ctx, schema.RepoSetsDocument, current.etag)
	if err != nil {
		return ds.failed(schema.RepoSetsDocument, err)
	}
	if !result.Changed {
		ds.unchanged(schema.RepoSetsDocument)
		return nil
	}
	sets, err := ParseRepoSets(result.Content)
	if err != nil {
		return ds.failed(schema.RepoSetsDocument, err)
	}

	next := &repoSnapshot{sets: sets, etag: result.ETag, loadedAt: time.Now()}
	ds.swapMu.Lock()
	ds.repoSets.Store(next)
	ds.swapMu.Unlock()

	ds.changed(schema.RepoSetsDocument, sets.Len(), time.Since(start))
	return nil
}

func (ds *DataSource) reloadPersonSets(ctx context.Context) error {
	start := time.Now()
	current := ds.personSets.Load()

	result, err := ds.provider.Read(ctx, schema.PersonSetsDocument, current.etag)
	if err != nil {
		return ds.failed(schema.PersonSetsDocument, err)
	}
	if !result.Changed {
		ds.unchanged(schema.PersonSetsDocument)
		return nil
	}
	sets, err := ParsePersonSets(result.Content)
	if err != nil {
		return ds.failed(schema.PersonSetsDocument, err)
	}

	next := &personSnapshot{sets: sets, etag: result.ETag, loadedAt: time.Now()}
	ds.swapMu.Lock()
	ds.personSets.Store(next)
	ds.swapMu.Unlock()

	ds.changed(schema.PersonSetsDocument, len(sets), time.Since(start))
	return nil
}

func (ds *DataSource) failed(document string, err error) error {
	ds.logger.Error("reload failed, keeping previous data", "document", document, "error", err)
	ds.metrics.ObserveReload(document, observability.ReloadFailed)
	return fmt.Errorf("reload %s: %w", document, err)
}

func (ds *DataSource) unchanged(document string) {
	ds.logger.Debug("skipped reload, nothing changed", "document", document)
	ds.metrics.ObserveReload(document, observability.ReloadUnchanged)
}

func (ds *DataSource) changed(document string, sets int, took time.Duration) {
	ds.logger.Info("reloaded", "document", document, "sets", sets, "duration_ms", took.Milliseconds())
	ds.metrics.ObserveReload(document, observability.ReloadChanged)
}
