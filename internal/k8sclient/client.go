// Package k8sclient resolves kubeconfig and context into API clients.
package k8sclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"
)

const DefaultTimeout = 10 * time.Second

type Bundle struct {
	RawConfig        clientcmdapi.Config
	EffectiveContext string
	Clientset        kubernetes.Interface
	Metrics          metricsclient.Interface
	REST             *rest.Config
}

// NewBundle builds the core and metrics clientsets for the given kubeconfig
// and context. Empty values use client-go's default loading rules and the
// kubeconfig's current context. timeout bounds each API request; zero uses
// DefaultTimeout.
func NewBundle(kubeconfigPath, contextName string, timeout time.Duration) (*Bundle, error) {
	loader := loadingRules(kubeconfigPath)
	overrides := &clientcmd.ConfigOverrides{}
	if strings.TrimSpace(contextName) != "" {
		overrides.CurrentContext = strings.TrimSpace(contextName)
	}

	cfg := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loader, overrides)
	rawCfg, err := cfg.RawConfig()
	if err != nil {
		return nil, wrapConfigErr(err)
	}
	restCfg, err := cfg.ClientConfig()
	if err != nil {
		return nil, wrapConfigErr(err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	restCfg.Timeout = timeout

	var (
		clientset  kubernetes.Interface
		metrics    metricsclient.Interface
		csErr      error
		metricsErr error
	)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		clientset, csErr = kubernetes.NewForConfig(restCfg)
	}()
	go func() {
		defer wg.Done()
		metrics, metricsErr = metricsclient.NewForConfig(restCfg)
	}()
	wg.Wait()
	if csErr != nil {
		return nil, fmt.Errorf("failed to initialize kubernetes clientset: %w", csErr)
	}
	if metricsErr != nil {
		return nil, fmt.Errorf("failed to initialize metrics client: %w", metricsErr)
	}

	effective := strings.TrimSpace(overrides.CurrentContext)
	if effective == "" {
		effective = strings.TrimSpace(rawCfg.CurrentContext)
	}
	return &Bundle{
		RawConfig:        rawCfg,
		EffectiveContext: effective,
		Clientset:        clientset,
		Metrics:          metrics,
		REST:             restCfg,
	}, nil
}

// ListContexts returns the kubeconfig's context names, sorted.
func ListContexts(kubeconfigPath string) ([]string, error) {
	raw, err := loadRawConfig(kubeconfigPath)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw.Contexts))
	for name := range raw.Contexts {
		name = strings.TrimSpace(name)
		if name != "" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func CurrentContext(kubeconfigPath string) (string, error) {
	raw, err := loadRawConfig(kubeconfigPath)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw.CurrentContext), nil
}

// ClusterName returns the cluster entry the context points at, or "" when
// the context is unknown.
func ClusterName(raw clientcmdapi.Config, contextName string) string {
	ctxName := strings.TrimSpace(contextName)
	if ctxName == "" {
		ctxName = strings.TrimSpace(raw.CurrentContext)
	}
	ctxCfg, ok := raw.Contexts[ctxName]
	if !ok || ctxCfg == nil {
		return ""
	}
	return strings.TrimSpace(ctxCfg.Cluster)
}

// DetectAuthMethods lists how the context authenticates. OKE kubeconfigs
// normally use "exec" with the OCI CLI token generator.
func DetectAuthMethods(raw clientcmdapi.Config, contextName string) []string {
	ctxName := strings.TrimSpace(contextName)
	if ctxName == "" {
		ctxName = strings.TrimSpace(raw.CurrentContext)
	}
	ctxCfg, ok := raw.Contexts[ctxName]
	if !ok || ctxCfg == nil {
		return []string{"unknown"}
	}
	authCfg, ok := raw.AuthInfos[strings.TrimSpace(ctxCfg.AuthInfo)]
	if !ok || authCfg == nil {
		return []string{"unknown"}
	}

	methods := make([]string, 0, 3)
	if strings.TrimSpace(authCfg.Token) != "" || strings.TrimSpace(authCfg.TokenFile) != "" {
		methods = append(methods, "token")
	}
	if len(authCfg.ClientCertificateData) > 0 || strings.TrimSpace(authCfg.ClientCertificate) != "" {
		methods = append(methods, "client-cert")
	}
	if authCfg.Exec != nil {
		methods = append(methods, "exec:"+strings.TrimSpace(authCfg.Exec.Command))
	}
	if len(methods) == 0 {
		methods = append(methods, "unknown")
	}
	return methods
}

// TestConnection asks the API server for its version.
func TestConnection(ctx context.Context, bundle *Bundle) error {
	if bundle == nil || bundle.Clientset == nil {
		return fmt.Errorf("kubernetes client is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := bundle.Clientset.Discovery().ServerVersion(); err != nil {
		return WrapConnErr(err)
	}
	return nil
}

func loadingRules(kubeconfigPath string) *clientcmd.ClientConfigLoadingRules {
	loader := clientcmd.NewDefaultClientConfigLoadingRules()
	if strings.TrimSpace(kubeconfigPath) != "" {
		loader.ExplicitPath = strings.TrimSpace(kubeconfigPath)
	}
	return loader
}

func loadRawConfig(kubeconfigPath string) (clientcmdapi.Config, error) {
	rawCfg, err := loadingRules(kubeconfigPath).Load()
	if err != nil {
		return clientcmdapi.Config{}, wrapConfigErr(err)
	}
	if rawCfg == nil {
		return clientcmdapi.Config{}, fmt.Errorf("kubeconfig is empty")
	}
	return *rawCfg, nil
}

func wrapConfigErr(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no configuration has been provided"):
		return fmt.Errorf("kubeconfig not found or empty; set --kubeconfig or KUBECONFIG")
	case strings.Contains(msg, "context was not found"), strings.Contains(msg, "no context exists with the name"):
		return fmt.Errorf("requested context not found in kubeconfig: %w", err)
	case strings.Contains(msg, "unable to read"), strings.Contains(msg, "no such file"):
		return fmt.Errorf("failed to read kubeconfig file: %w", err)
	default:
		return fmt.Errorf("failed to load kubeconfig: %w", err)
	}
}

// WrapConnErr rewrites API transport errors into operator-facing hints.
func WrapConnErr(err error) error {
	if err == nil {
		return nil
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		var ne net.Error
		if errors.As(uerr.Err, &ne) && ne.Timeout() {
			return fmt.Errorf("cluster connection timed out; check network/VPN and API server reachability")
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("cluster request timed out; raise --timeout or check API server reachability")
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "forbidden"):
		return fmt.Errorf("authentication failed; refresh credentials for the selected context (oci ce cluster generate-token): %w", err)
	case strings.Contains(msg, "x509"), strings.Contains(msg, "certificate"):
		return fmt.Errorf("TLS validation failed; verify cluster certificate/CA in kubeconfig")
	case strings.Contains(msg, "no such host"), strings.Contains(msg, "dial tcp"):
		return fmt.Errorf("cannot reach Kubernetes API endpoint; verify server URL and network access")
	default:
		return fmt.Errorf("failed to connect to Kubernetes API: %w", err)
	}
}
