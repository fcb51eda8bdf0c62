package extension

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"apex-dashboard/internal/config"
	"apex-dashboard/internal/metrics"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	nativePrefix = "native:"
	maxFetchSize = 1 << 20
)

var errNotFound = errors.New("not found")

type PluginLoader interface {
	// LoadAll reads the manifest and loads every entry concurrently. A
	// missing or unreadable manifest yields an empty report.
	LoadAll(ctx context.Context, host Host) Report
	LastReport() Report
	RegisterNative(name string, p NativePlugin)
}

type PluginLoaderImpl struct {
	Manifest string
	Timeout  time.Duration
	Client   *http.Client
	log      *zap.Logger

	mu      sync.RWMutex
	natives map[string]NativePlugin
	last    Report
}

func NewPluginLoader(cfg *config.Config, log *zap.Logger) PluginLoader {
	timeout := cfg.PluginTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	l := &PluginLoaderImpl{
		Manifest: cfg.PluginManifest,
		Timeout:  timeout,
		Client:   &http.Client{Timeout: timeout},
		log:      log.Named("plugins"),
		natives:  make(map[string]NativePlugin),
	}
	RegisterBuiltinNatives(l)
	return l
}

func (l *PluginLoaderImpl) RegisterNative(name string, p NativePlugin) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.natives[name] = p
}

func (l *PluginLoaderImpl) native(name string) (NativePlugin, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.natives[name]
	return p, ok
}

func (l *PluginLoaderImpl) LastReport() Report {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last
}

func (l *PluginLoaderImpl) LoadAll(ctx context.Context, host Host) Report {
	report := Report{Manifest: l.Manifest, LoadedAt: time.Now(), Plugins: []PluginResult{}}

	manifest, err := l.readManifest(ctx)
	switch {
	case errors.Is(err, errNotFound):
		l.log.Info("no plugin manifest", zap.String("manifest", l.Manifest))
	case err != nil:
		l.log.Warn("plugin manifest unavailable", zap.String("manifest", l.Manifest), zap.Error(err))
	default:
		report.Found = true
		entries, failed := l.expand(manifest.Plugins)
		report.Plugins = append(report.Plugins, failed...)

		results := make([]PluginResult, len(entries))
		var wg sync.WaitGroup
		for i, entry := range entries {
			wg.Add(1)
			go func(i int, entry string) {
				defer wg.Done()
				results[i] = l.loadOne(ctx, host, entry)
			}(i, entry)
		}
		wg.Wait()
		report.Plugins = append(report.Plugins, results...)
	}

	sort.Slice(report.Plugins, func(i, j int) bool { return report.Plugins[i].Entry < report.Plugins[j].Entry })

	l.mu.Lock()
	l.last = report
	l.mu.Unlock()

	l.log.Info("plugins loaded",
		zap.Int("total", len(report.Plugins)),
		zap.Int("failed", report.Failed()))
	return report
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func (l *PluginLoaderImpl) readManifest(ctx context.Context) (*Manifest, error) {
	if l.Manifest == "" {
		return nil, errNotFound
	}

	var raw []byte
	var err error
	if isURL(l.Manifest) {
		raw, err = l.fetch(ctx, l.Manifest)
	} else {
		raw, err = os.ReadFile(l.Manifest)
		if errors.Is(err, os.ErrNotExist) {
			return nil, errNotFound
		}
	}
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

func (l *PluginLoaderImpl) fetch(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, l.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", target, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
}

// expand resolves manifest entries against the manifest location and
// expands glob patterns. Patterns that match nothing are reported as
// failures.
func (l *PluginLoaderImpl) expand(entries []string) ([]string, []PluginResult) {
	var (
		out    []string
		failed []PluginResult
		seen   = make(map[string]bool)
	)
	add := func(e string) {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}

	for _, e := range entries {
		e = strings.TrimSpace(e)
		switch {
		case e == "":
			continue
		case strings.HasPrefix(e, nativePrefix), isURL(e):
			add(e)
			continue
		}

		resolved, err := l.resolve(e)
		if err != nil {
			failed = append(failed, PluginResult{Entry: e, Kind: KindScript, Status: StatusFailed, Error: err.Error()})
			continue
		}
		if isURL(resolved) || !strings.ContainsAny(resolved, "*?[{") {
			add(resolved)
			continue
		}

		matches, err := doublestar.FilepathGlob(resolved)
		if err == nil && len(matches) == 0 {
			err = errors.New("pattern matched no files")
		}
		if err != nil {
			failed = append(failed, PluginResult{Entry: e, Kind: KindScript, Status: StatusFailed, Error: err.Error()})
			continue
		}
		for _, m := range matches {
			add(m)
		}
	}
	return out, failed
}

func (l *PluginLoaderImpl) resolve(entry string) (string, error) {
	if isURL(l.Manifest) {
		base, err := url.Parse(l.Manifest)
		if err != nil {
			return "", err
		}
		ref, err := url.Parse(entry)
		if err != nil {
			return "", err
		}
		return base.ResolveReference(ref).String(), nil
	}
	if filepath.IsAbs(entry) {
		return entry, nil
	}
	return filepath.Join(filepath.Dir(l.Manifest), entry), nil
}

// loadOne never panics; a broken plugin is reported and skipped.
func (l *PluginLoaderImpl) loadOne(ctx context.Context, host Host, entry string) (res PluginResult) {
	start := time.Now()
	res = PluginResult{Entry: entry, Kind: KindScript}
	log := l.log.With(zap.String("plugin", entry))

	defer func() {
		if r := recover(); r != nil {
			res.Status = StatusFailed
			res.Error = fmt.Sprintf("panic: %v", r)
		}
		res.Duration = time.Since(start)
		if res.Status == StatusFailed {
			log.Warn("plugin failed", zap.String("error", res.Error))
		} else {
			log.Debug("plugin loaded", zap.Duration("took", res.Duration))
		}
		metrics.PluginLoads.WithLabelValues(string(res.Status)).Inc()
	}()

	ctx, cancel := context.WithTimeout(ctx, l.Timeout)
	defer cancel()

	var err error
	if name, ok := strings.CutPrefix(entry, nativePrefix); ok {
		res.Kind = KindNative
		p, found := l.native(name)
		if !found {
			err = fmt.Errorf("no native plugin named %q", name)
		} else {
			res.Init = true
			err = p(ctx, host)
		}
	} else {
		var src []byte
		if isURL(entry) {
			src, err = l.fetch(ctx, entry)
		} else {
			src, err = os.ReadFile(entry)
		}
		if err == nil {
			res.Init, err = runScript(ctx, src, host, log)
		}
	}

	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		return res
	}
	res.Status = StatusLoaded
	return res
}
