package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"k8s.io/apimachinery/pkg/labels"
)

// ArtifactsEnv names the environment variable whose value, when set, roots
// the default log path.
const ArtifactsEnv = "ARTIFACTS"

// DefaultLogPath returns $ARTIFACTS/logs, or {tmp}/testframe/logs when
// ARTIFACTS is unset.
func DefaultLogPath() string {
	if base := os.Getenv(ArtifactsEnv); base != "" {
		return filepath.Join(base, "logs")
	}
	return filepath.Join(os.TempDir(), "testframe", "logs")
}

// LogCollectionManager gathers diagnostics from every cluster context of a
// session. It never fails its caller: every problem is logged and dropped.
type LogCollectionManager struct {
	store   *Store
	factory CollectorFactory

	testIdentity string
	opts         CollectorOptions
}

// Verify LogCollectionManager implements Diagnostics at compile time.
var _ Diagnostics = (*LogCollectionManager)(nil)

// NewLogCollectionManager returns a manager that builds collectors with
// factory and records the primary one in store.
func NewLogCollectionManager(store *Store, factory CollectorFactory) *LogCollectionManager {
	return &LogCollectionManager{store: store, factory: factory}
}

// Attach builds the primary collector rooted at {logPath}/{testIdentity}
// and records it in the store.
func (l *LogCollectionManager) Attach(testIdentity string, cfg *SessionConfig, rm *ResourceManager) error {
	base := cfg.LogPath
	if base == "" {
		base = DefaultLogPath()
	}
	l.testIdentity = testIdentity
	l.opts = CollectorOptions{
		RootPath:         filepath.Join(base, sanitizePathElement(testIdentity)),
		NamespacedKinds:  slices.Clone(cfg.NamespacedResourceKinds),
		ClusterWideKinds: slices.Clone(cfg.ClusterWideResourceKinds),
		CollectPrevious:  cfg.CollectPreviousLogs,
	}

	c, err := l.factory(rm.Client(), l.opts)
	if err != nil {
		return fmt.Errorf("create log collector: %w", err)
	}
	l.store.SetCollector(c)
	Logger().Debug("attached log collector", "root", l.opts.RootPath)
	return nil
}

// CollectLogs gathers diagnostics into {root}[/{context}]/{suffix} for the
// primary context and then for every other registered context. Each context
// collects the union of its declared namespaces and the namespaces carrying
// the log collection label. A panic anywhere in collection is logged and
// swallowed; a panic inside one context does not stop the others.
func (l *LogCollectionManager) CollectLogs(ctx context.Context, suffix string) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Warn("log collection panicked", "suffix", suffix, "panic", r)
		}
	}()

	collector := l.store.Collector()
	if collector == nil {
		Logger().Warn("skipping log collection", "suffix", suffix, "error", ErrNoCollector)
		return
	}

	cfg := l.store.Config()
	var declared []string
	if cfg != nil {
		declared = cfg.Namespaces
	}
	if primary, ok := l.store.Manager(PrimaryContext); ok {
		l.collectContext(ctx, PrimaryContext, suffix, primary, collector, declared)
	}

	for _, name := range l.store.ManagerNames() {
		if name == PrimaryContext {
			continue
		}
		rm, _ := l.store.Manager(name)
		l.collectMapped(ctx, name, suffix, rm, cfg)
	}
}

func (l *LogCollectionManager) collectMapped(ctx context.Context, contextName, suffix string, rm *ResourceManager, cfg *SessionConfig) {
	var declared []string
	if cfg != nil {
		if m, ok := cfg.Mapping(contextName); ok {
			declared = m.Namespaces
		}
	}

	opts := l.opts
	opts.RootPath = filepath.Join(l.opts.RootPath, sanitizePathElement(contextName))
	collector, err := l.newCollector(rm, opts)
	if err != nil {
		Logger().Warn("failed to create log collector",
			"context", contextName, "suffix", suffix, "error", err)
		return
	}
	l.collectContext(ctx, contextName, suffix, rm, collector, declared)
}

// newCollector calls the factory, turning a panic into an error.
func (l *LogCollectionManager) newCollector(rm *ResourceManager, opts CollectorOptions) (c LogCollector, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collector factory panicked: %v", r)
		}
	}()
	return l.factory(rm.Client(), opts)
}

func (l *LogCollectionManager) collectContext(
	ctx context.Context,
	contextName, suffix string,
	rm *ResourceManager,
	collector LogCollector,
	declared []string,
) {
	log := Logger().With("context", displayContext(contextName), "suffix", suffix)
	defer func() {
		if r := recover(); r != nil {
			log.Warn("log collection panicked", "panic", r)
		}
	}()

	namespaces := unionNamespaces(declared, l.labeledNamespaces(ctx, rm, log))
	if len(namespaces) == 0 {
		log.Debug("no namespaces to collect from")
		return
	}

	if err := collector.CollectFromNamespaces(ctx, suffix, namespaces); err != nil {
		log.Warn("failed to collect namespace diagnostics", "namespaces", namespaces, "error", err)
	}
	if err := collector.CollectClusterWideResources(ctx, suffix); err != nil {
		log.Warn("failed to collect cluster-wide resources", "error", err)
	}
	log.Info("collected diagnostics", "namespaces", len(namespaces))
}

// labeledNamespaces lists namespaces carrying the log collection label. A
// failed query is logged and treated as an empty result.
func (l *LogCollectionManager) labeledNamespaces(ctx context.Context, rm *ResourceManager, log *slog.Logger) []string {
	selector := labels.SelectorFromSet(labels.Set{LogCollectionLabel: LogCollectionLabelValue})
	list, err := rm.Client().ListNamespaces(ctx, selector)
	if err != nil {
		log.Warn("failed to list labeled namespaces", "error", err)
		return nil
	}
	names := make([]string, 0, len(list))
	for idx := range list {
		names = append(names, list[idx].Name)
	}
	return names
}

// unionNamespaces returns declared in order followed by the discovered names
// not already present, sorted.
func unionNamespaces(declared, discovered []string) []string {
	seen := make(map[string]struct{}, len(declared)+len(discovered))
	out := make([]string, 0, len(declared)+len(discovered))
	for _, n := range declared {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	extra := make([]string, 0, len(discovered))
	for _, n := range discovered {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		extra = append(extra, n)
	}
	slices.Sort(extra)
	return append(out, extra...)
}
