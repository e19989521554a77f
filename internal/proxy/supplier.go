package proxy

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"resty.dev/v3"
)

// maxParallelChecks bounds concurrent proxy validation requests.
const maxParallelChecks = 50

// ProxySupplier manages a pool of proxies with round-robin selection
type ProxySupplier interface {
	Get() string
	Len() int
}

type proxySupplier struct {
	proxies []string
	current int
	mutex   sync.Mutex
}

// Checker reports whether a proxy can reach the test URL.
type Checker func(ctx context.Context, proxyURL, testURL string) bool

// NewProxySupplier creates a new ProxySupplier with validated proxies.
// Proxies keep their configured order.
func NewProxySupplier(ctx context.Context, proxies []string, testURL string) ProxySupplier {
	return newProxySupplier(ctx, proxies, testURL, isProxyValid)
}

func newProxySupplier(ctx context.Context, proxies []string, testURL string, check Checker) *proxySupplier {
	if len(proxies) == 0 {
		return &proxySupplier{proxies: []string{}}
	}

	log.Infof("🔄 Testing %d proxies in parallel...", len(proxies))

	valid := make([]bool, len(proxies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelChecks)

	for i, proxyURL := range proxies {
		g.Go(func() error {
			log.Debugf("🔄 Testing proxy %d/%d: %s", i+1, len(proxies), proxyURL)

			if check(gctx, proxyURL, testURL) {
				valid[i] = true
				log.Infof("✅ Proxy %s is working", proxyURL)
			} else {
				log.Infof("❌ Proxy %s is not working, skipping", proxyURL)
			}
			return nil
		})
	}

	// Checks never fail the group; a broken proxy is just skipped.
	_ = g.Wait()

	validProxies := make([]string, 0, len(proxies))
	for i, ok := range valid {
		if ok {
			validProxies = append(validProxies, proxies[i])
		}
	}

	log.Infof("✅ ProxySupplier initialized with %d working proxies out of %d tested", len(validProxies), len(proxies))

	return &proxySupplier{proxies: validProxies}
}

// Get returns the next proxy URL in round-robin fashion
func (p *proxySupplier) Get() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	proxy := p.proxies[p.current]
	p.current = (p.current + 1) % len(p.proxies)

	return proxy
}

func (p *proxySupplier) Len() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return len(p.proxies)
}

// isProxyValid tests if a proxy can successfully make a request to the test URL
func isProxyValid(ctx context.Context, proxyURL, testURL string) bool {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(0).
		SetProxy(proxyURL)
	defer client.Close()

	resp, err := client.R().
		SetContext(ctx).
		Get(testURL)

	if err != nil {
		log.Infof("Proxy test failed for %s: %v", proxyURL, err)
		return false
	}

	if resp.IsError() {
		log.Infof("Proxy test failed for %s with status: %s", proxyURL, resp.Status())
		return false
	}

	return true
}
