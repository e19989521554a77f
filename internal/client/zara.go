package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"zara/scraper/internal/config"
	"zara/scraper/internal/domain"
	"zara/scraper/internal/proxy"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

type ZaraClient interface {
	// FetchCategories returns the category listing, failing with *StatusError on a non-2xx answer.
	FetchCategories(ctx context.Context) (*domain.RawDocument, error)
	// FetchRaw returns the upstream answer whatever its status.
	FetchRaw(ctx context.Context) (*domain.RawDocument, error)
	Close() error
}

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream request failed with status %d %s", e.StatusCode, e.Status)
}

type zaraClient struct {
	rl            ratelimit.Limiter
	config        config.ZaraConfig
	url           string
	httpClient    *resty.Client
	proxySupplier proxy.ProxySupplier

	// Circuit breaker for rate limited responses
	circuitBreakerMutex sync.RWMutex
	quotaExceededUntil  time.Time
	circuitBreakerDelay time.Duration
}

func NewZaraClient(cfg config.ZaraConfig, proxySupplier proxy.ProxySupplier) ZaraClient {
	client := resty.New().
		SetTimeout(time.Duration(cfg.Timeout)*time.Second).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", cfg.Accept).
		SetHeader("Accept-Language", cfg.AcceptLanguage).
		SetHeader("X-Requested-With", "XMLHttpRequest")

	if proxySupplier != nil {
		if proxyURL := proxySupplier.Get(); proxyURL != "" {
			client.SetProxy(proxyURL)
			log.Infof("🔗 Using initial proxy: %s", proxyURL)
		}
	}

	rl := ratelimit.NewUnlimited()
	if cfg.MaxRequestsPerSecond > 0 {
		rl = ratelimit.New(cfg.MaxRequestsPerSecond)
	}

	delay := time.Duration(cfg.CircuitBreakerDelay) * time.Second
	if delay <= 0 {
		delay = 10 * time.Minute
	}

	return &zaraClient{
		rl:                  rl,
		config:              cfg,
		url:                 cfg.CategoriesURL(),
		httpClient:          client,
		proxySupplier:       proxySupplier,
		circuitBreakerDelay: delay,
	}
}

func (c *zaraClient) FetchCategories(ctx context.Context) (*domain.RawDocument, error) {
	doc, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if doc.StatusCode < 200 || doc.StatusCode > 299 {
		return nil, &StatusError{StatusCode: doc.StatusCode, Status: http.StatusText(doc.StatusCode)}
	}

	if payload, ok := embeddedJSON(doc.Content); ok {
		log.Debugf("Upstream answered with HTML, using embedded payload of %d bytes", len(payload))
		doc.Content = payload
	}

	log.Debugf("Fetched category listing: %d bytes", len(doc.Content))
	return doc, nil
}

func (c *zaraClient) FetchRaw(ctx context.Context) (*domain.RawDocument, error) {
	return c.fetch(ctx)
}

func (c *zaraClient) Close() error {
	return c.httpClient.Close()
}

func (c *zaraClient) isCircuitBreakerOpen() bool {
	c.circuitBreakerMutex.RLock()
	now := time.Now()
	wasOpen := now.Before(c.quotaExceededUntil)
	wasTriggered := !c.quotaExceededUntil.IsZero()
	c.circuitBreakerMutex.RUnlock()

	if !wasOpen && wasTriggered {
		c.circuitBreakerMutex.Lock()
		// Double-check after acquiring write lock
		if !c.quotaExceededUntil.IsZero() && now.After(c.quotaExceededUntil) {
			c.quotaExceededUntil = time.Time{}
			log.Infof("✅ Circuit breaker automatically re-enabled - requests are now allowed")
		}
		c.circuitBreakerMutex.Unlock()
	}

	return wasOpen
}

func (c *zaraClient) triggerCircuitBreaker() {
	c.circuitBreakerMutex.Lock()
	defer c.circuitBreakerMutex.Unlock()

	c.quotaExceededUntil = time.Now().Add(c.circuitBreakerDelay)
	log.Warnf("🚫 Circuit breaker activated! All requests disabled until %v (%v)",
		c.quotaExceededUntil.Format("15:04:05"), c.circuitBreakerDelay)
}

func (c *zaraClient) getRemainingCircuitBreakerTime() time.Duration {
	c.circuitBreakerMutex.RLock()
	defer c.circuitBreakerMutex.RUnlock()

	remaining := time.Until(c.quotaExceededUntil)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (c *zaraClient) fetch(ctx context.Context) (*domain.RawDocument, error) {
	if c.isCircuitBreakerOpen() {
		remaining := c.getRemainingCircuitBreakerTime()
		log.Debugf("🚫 Request blocked by circuit breaker. Remaining time: %v", remaining.Round(time.Second))
		return nil, fmt.Errorf("circuit breaker is open - requests disabled for %v more", remaining.Round(time.Second))
	}

	c.rl.Take()

	resp, err := c.get(ctx)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		log.Warnf("🚫 Rate limit exceeded for URL: %s", c.url)

		if c.proxySupplier != nil {
			if newProxy := c.proxySupplier.Get(); newProxy != "" {
				log.Infof("🔄 Switching to new proxy: %s", newProxy)
				c.httpClient.SetProxy(newProxy)

				retryResp, retryErr := c.get(ctx)
				if retryErr == nil && retryResp.StatusCode() != http.StatusTooManyRequests {
					log.Infof("✅ Retry successful with new proxy")
					return toDocument(retryResp), nil
				}
			}
		}

		c.triggerCircuitBreaker()
	}

	return toDocument(resp), nil
}

func (c *zaraClient) get(ctx context.Context) (*resty.Response, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(c.url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	return resp, nil
}

func toDocument(resp *resty.Response) *domain.RawDocument {
	headers := make(map[string]string, len(resp.Header()))
	for key, values := range resp.Header() {
		headers[key] = strings.Join(values, ",")
	}

	return &domain.RawDocument{
		StatusCode: resp.StatusCode(),
		Content:    resp.String(),
		Headers:    headers,
		FetchedAt:  time.Now().UTC(),
	}
}
