package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/internal/datasource"
	"github.com/huangsam/miklabel/internal/observability"
	"github.com/huangsam/miklabel/internal/outwriter"
	"github.com/huangsam/miklabel/schema"
)

// DataSourceView selects what ExecuteDataSourceShow prints.
type DataSourceView string

// Views supported by ExecuteDataSourceShow.
const (
	ViewStatus     DataSourceView = "status"
	ViewRepoSets   DataSourceView = "repo-sets"
	ViewRepoSet    DataSourceView = "repo-set"
	ViewPersonSets DataSourceView = "person-sets"
	ViewPersonSet  DataSourceView = "person-set"
)

// NewDataSource builds a data source over the configured directory or URL.
func NewDataSource(ctx context.Context, cfg *contract.Config) (*datasource.DataSource, error) {
	var provider contract.ContentProvider
	switch {
	case cfg.DataSourceDir != "":
		provider = datasource.NewFileProvider(cfg.DataSourceDir)
	case cfg.DataSourceURL != "":
		p, err := datasource.NewHTTPProvider(cfg.DataSourceURL, contract.DefaultHTTPTimeout)
		if err != nil {
			return nil, err
		}
		provider = p
	default:
		return nil, fmt.Errorf("a data source is required: set --datasource-dir or --datasource-url")
	}
	return datasource.New(provider, loggerFrom(ctx), observability.Default()), nil
}

// ExecuteDataSourceShow loads the documents once and prints the requested view.
// name is required by the single repo set and person set views.
func ExecuteDataSourceShow(ctx context.Context, cfg *contract.Config, view DataSourceView, name string) error {
	ds, err := NewDataSource(ctx, cfg)
	if err != nil {
		return err
	}
	if err := ds.Reload(ctx); err != nil {
		// Status is still worth showing when one document is broken
		if view != ViewStatus {
			return err
		}
		contract.LogWarn("Data source did not fully load", err)
	}

	switch view {
	case ViewStatus, "":
		return outwriter.PrintDataSourceStatus(ds.Status(), cfg)
	case ViewRepoSets:
		return outwriter.PrintRepoSets(ds.RepoDataSet(), cfg)
	case ViewRepoSet:
		def, ok := ds.RepoDataSet().RepoSet(name)
		if !ok {
			return fmt.Errorf("repo set %q not found", name)
		}
		return outwriter.PrintRepoSet(name, def, cfg)
	case ViewPersonSets:
		sets := make(map[string]schema.PersonSet, len(ds.PersonSetNames()))
		for _, n := range ds.PersonSetNames() {
			sets[n], _ = ds.PersonSet(n)
		}
		return outwriter.PrintPersonSets(sets, cfg)
	case ViewPersonSet:
		set, ok := ds.PersonSet(name)
		if !ok {
			return fmt.Errorf("person set %q not found", name)
		}
		return outwriter.PrintPersonSets(map[string]schema.PersonSet{name: set}, cfg)
	default:
		return fmt.Errorf("unknown data source view %q", view)
	}
}

// ExecuteDataSourceWatch keeps the documents loaded until ctx is done,
// reloading on file changes or on a polling interval. When MetricsAddr is
// set it also serves /metrics, /healthz and /readyz.
func ExecuteDataSourceWatch(ctx context.Context, cfg *contract.Config) error {
	ds, err := NewDataSource(ctx, cfg)
	if err != nil {
		return err
	}
	if cfg.DataSourceURL != "" && cfg.ReloadInterval <= 0 {
		return fmt.Errorf("--reload-interval is required to watch %s", cfg.DataSourceURL)
	}
	logger := loggerFrom(ctx)
	if err := ds.Reload(ctx); err != nil {
		contract.LogWarn("Initial data source load failed", err)
	}

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           observability.Default().Handler(ds.Ready),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("serving metrics", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				contract.LogWarn("Metrics server stopped", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if cfg.DataSourceDir != "" {
		return ds.Watch(ctx, cfg.DataSourceDir, cfg.ReloadDebounce)
	}
	return ds.Poll(ctx, cfg.ReloadInterval)
}
