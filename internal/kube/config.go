package kube

import (
	"fmt"

	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Clients bundles the client-go interfaces bound to one context.
type Clients struct {
	Kube      kubernetes.Interface
	Dynamic   dynamic.Interface
	Discovery discovery.DiscoveryInterface
}

// Builder returns Clients for the named kubeconfig context. An empty name
// selects the kubeconfig's current context.
type Builder func(contextName string) (*Clients, error)

// BuildRESTConfig loads a REST config from kubeconfig, or from the default
// loading rules (KUBECONFIG, ~/.kube/config) when kubeconfig is empty.
func BuildRESTConfig(kubeconfig, contextName string) (*rest.Config, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		loadingRules = &clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfig}
	}

	overrides := &clientcmd.ConfigOverrides{}
	if contextName != "" {
		overrides.CurrentContext = contextName
	}

	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}
	return restConfig, nil
}

// ClientsForConfig creates every client from restConfig. The discovery
// client does not cache so that mapper refreshes see newly installed types.
func ClientsForConfig(restConfig *rest.Config) (*Clients, error) {
	kube, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("create kubernetes client: %w", err)
	}
	dyn, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("create dynamic client: %w", err)
	}
	disc, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("create discovery client: %w", err)
	}
	return &Clients{Kube: kube, Dynamic: dyn, Discovery: disc}, nil
}

// KubeconfigBuilder returns a Builder reading contexts from kubeconfig.
func KubeconfigBuilder(kubeconfig string) Builder {
	return func(contextName string) (*Clients, error) {
		restConfig, err := BuildRESTConfig(kubeconfig, contextName)
		if err != nil {
			return nil, err
		}
		return ClientsForConfig(restConfig)
	}
}
