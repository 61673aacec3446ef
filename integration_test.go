//go:build integration

package testframe_test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	testframe "github.com/skodjob/test-frame-sub000"
	"github.com/skodjob/test-frame-sub000/internal/kube"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// The integration suite runs against the cluster of the current kubeconfig
// context (KUBECONFIG or ~/.kube/config). Set TESTFRAME_LOG_LEVEL to DEBUG
// for verbose output.

var nameCounter atomic.Int64

// uniqueName returns a resource name unique across parallel tests and
// concurrent runs against the same cluster.
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, os.Getpid(), nameCounter.Add(1))
}

func TestMain(m *testing.M) {
	flag.Parse()

	levelStr := os.Getenv("TESTFRAME_LOG_LEVEL")
	if levelStr == "" {
		levelStr = "INFO"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	testframe.SetLogger(slog.Default().With("component", "testframe"))

	restConfig, err := kube.BuildRESTConfig("", "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "no usable kubeconfig: %v\n", err)
		os.Exit(1)
	}
	clients, err := kube.ClientsForConfig(restConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build clients: %v\n", err)
		os.Exit(1)
	}
	if _, err := clients.Discovery.ServerVersion(); err != nil {
		fmt.Fprintf(os.Stderr, "cluster unreachable: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func TestIntegration_SuiteLifecycle(t *testing.T) {
	t.Parallel()

	nsName := uniqueName("testframe-it")
	logDir := t.TempDir()
	cfg := testframe.NewSessionConfig(
		testframe.WithNamespaces(nsName),
		testframe.WithNamespaceLabels("app.kubernetes.io/managed-by=testframe"),
		testframe.WithLogCollection(testframe.LogAfterEach),
		testframe.WithLogPath(logDir),
		testframe.WithNamespacedResourceKinds("configmaps"),
	)

	var kubeClients *kube.Clients
	t.Run("suite", func(t *testing.T) {
		s := testframe.Setup(t, testframe.StaticConfig(cfg))

		s.Run(t, "creates-configmap", func(t *testing.T, rm *testframe.ResourceManager) {
			client, ok := rm.Client().(*kube.Client)
			if !ok {
				t.Fatalf("Client() = %T, want *kube.Client", rm.Client())
			}
			clients, err := client.Clients()
			if err != nil {
				t.Fatalf("Clients() error = %v, want nil", err)
			}
			kubeClients = clients

			if _, err := rm.CreateResource(t.Context(), configMap(nsName, "settings")); err != nil {
				t.Fatalf("CreateResource() error = %v, want nil", err)
			}
		})
	})

	if kubeClients == nil {
		t.Fatal("test body did not run")
	}
	_, err := kubeClients.Kube.CoreV1().Namespaces().Get(context.Background(), nsName, metav1.GetOptions{})
	if err == nil {
		t.Errorf("namespace %s still exists after suite teardown", nsName)
	}

	// Per-test cleanup runs before after-each collection and a fresh
	// namespace may have no pods or events, so only the collection root is
	// guaranteed to exist.
	root := filepath.Join(logDir, "TestIntegration_SuiteLifecycle_suite")
	if _, err := os.Stat(filepath.Join(root, ".collect.lock")); err != nil {
		t.Errorf("collection root not used: %v", err)
	}
}

func TestIntegration_MissingNamespaceWithoutCreation(t *testing.T) {
	t.Parallel()

	cfg := testframe.NewSessionConfig(
		testframe.WithNamespaces(uniqueName("testframe-absent")),
		testframe.WithCreateNamespaces(false),
	)
	s := testframe.NewSession(testframe.StaticConfig(cfg))
	ctx := context.Background()

	err := s.SetupSuite(ctx, "Absent")
	if err == nil {
		t.Fatal("SetupSuite() error = nil, want ErrNamespaceUnavailable")
	}
	if !errors.Is(err, testframe.ErrNamespaceUnavailable) {
		t.Errorf("SetupSuite() error = %v, want ErrNamespaceUnavailable", err)
	}
	if err := s.TeardownSuite(ctx); err != nil {
		t.Errorf("TeardownSuite() error = %v, want nil", err)
	}
}
