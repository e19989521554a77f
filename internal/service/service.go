package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"zara/scraper/internal/cache"
	"zara/scraper/internal/client"
	"zara/scraper/internal/domain"
	"zara/scraper/internal/domain/task"
	"zara/scraper/internal/extractor"
	"zara/scraper/internal/jsontree"
	"zara/scraper/internal/metrics"
	"zara/scraper/internal/queue"
	"zara/scraper/internal/repository"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrSnapshotsDisabled is returned when no snapshot repository is configured.
	ErrSnapshotsDisabled = errors.New("snapshots are disabled")
	// ErrQueueDisabled is returned when no refresh queue is configured.
	ErrQueueDisabled = errors.New("refresh queue is disabled")
)

const (
	// maxRefreshRetries bounds how often a failed refresh task is requeued.
	maxRefreshRetries = 3

	defaultMinIdleTime = 2 * time.Minute
	// readErrorBackoff is the pause after a failed queue read.
	readErrorBackoff = time.Second
)

type Service struct {
	client     client.ZaraClient
	extractor  *extractor.Extractor
	metrics    *metrics.Metrics
	cache      cache.DocumentCache
	repository repository.SnapshotRepository
	queue      queue.Queue

	groupName        string
	minIdleTime      time.Duration
	readErrorBackoff time.Duration
}

type Option func(*Service)

// WithCache serves category listings from cache until the entry expires.
func WithCache(c cache.DocumentCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithRepository(r repository.SnapshotRepository) Option {
	return func(s *Service) {
		s.repository = r
	}
}

// WithQueue enables refresh tasks. minIdleTime is how long a pending message
// stays unacknowledged before another consumer claims it; non-positive values
// keep the default.
func WithQueue(q queue.Queue, groupName string, minIdleTime time.Duration) Option {
	return func(s *Service) {
		s.queue = q
		s.groupName = groupName
		if minIdleTime > 0 {
			s.minIdleTime = minIdleTime
		}
	}
}

func NewService(
	client client.ZaraClient,
	extractor *extractor.Extractor,
	metrics *metrics.Metrics,
	opts ...Option,
) *Service {
	s := &Service{
		client:           client,
		extractor:        extractor,
		metrics:          metrics,
		minIdleTime:      defaultMinIdleTime,
		readErrorBackoff: readErrorBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Categories returns the category tree of the current listing.
func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	root, err := s.document(ctx)
	if err != nil {
		return nil, err
	}

	categories, err := s.extractor.ExtractCategories(root)
	if err != nil {
		s.observeExtractionError(err)
		return nil, fmt.Errorf("failed to extract categories: %w", err)
	}

	s.metrics.ObserveExtracted("category", len(categories))
	return categories, nil
}

// Subcategories returns the subcategories of every category matching filter.
func (s *Service) Subcategories(ctx context.Context, filter extractor.Filter) ([]domain.Subcategory, error) {
	root, err := s.document(ctx)
	if err != nil {
		return nil, err
	}

	subcategories, err := s.extractor.SearchSubcategoriesInElement(root, filter)
	if err != nil {
		s.observeExtractionError(err)
		return nil, fmt.Errorf("failed to search subcategories: %w", err)
	}

	s.metrics.ObserveExtracted("subcategory", len(subcategories))
	return subcategories, nil
}

func (s *Service) AllSubcategories(ctx context.Context) ([]domain.Subcategory, error) {
	root, err := s.document(ctx)
	if err != nil {
		return nil, err
	}

	subcategories, err := s.extractor.ExtractAllSubcategoriesFromElement(root)
	if err != nil {
		s.observeExtractionError(err)
		return nil, fmt.Errorf("failed to extract subcategories: %w", err)
	}

	s.metrics.ObserveExtracted("subcategory", len(subcategories))
	return subcategories, nil
}

// RawJSON returns the upstream answer as is. It never reads the cache.
func (s *Service) RawJSON(ctx context.Context) (*domain.RawDocument, error) {
	doc, err := s.client.FetchRaw(ctx)
	if err != nil {
		s.metrics.ObserveUpstream(0)
		return nil, err
	}
	s.metrics.ObserveUpstream(doc.StatusCode)
	return doc, nil
}

// Snapshot fetches a fresh listing, bypassing the cache, and stores its category tree.
func (s *Service) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	if s.repository == nil {
		return nil, ErrSnapshotsDisabled
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			log.Warnf("⚠️ Failed to invalidate cached listing: %v", err)
		}
	}

	categories, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := domain.NewSnapshot(time.Now().UTC(), categories)
	id, err := s.repository.SaveSnapshot(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}
	snapshot.ID = id

	log.Infof("✅ Saved snapshot %d: %d categories, %d subcategories",
		id, snapshot.CategoryCount, snapshot.SubcategoryCount)
	return snapshot, nil
}

func (s *Service) LatestSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	if s.repository == nil {
		return nil, ErrSnapshotsDisabled
	}
	return s.repository.LatestSnapshot(ctx)
}

// EnqueueRefresh asks the workers for a new snapshot and returns the message id.
func (s *Service) EnqueueRefresh(ctx context.Context, reason string) (string, error) {
	if s.queue == nil {
		return "", ErrQueueDisabled
	}

	msgID, err := s.queue.AddTask(ctx, &task.RefreshTask{
		Reason:      reason,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to enqueue refresh: %w", err)
	}

	log.Infof("🔄 Enqueued refresh %s (%s)", msgID, reason)
	return msgID, nil
}

// RunScheduler enqueues a refresh every interval until ctx is done.
func (s *Service) RunScheduler(ctx context.Context, interval time.Duration) error {
	if s.queue == nil {
		return ErrQueueDisabled
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Infof("⏰ Scheduling a refresh every %v", interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.EnqueueRefresh(ctx, "schedule"); err != nil {
				log.Errorf("❌ Scheduled refresh failed: %v", err)
			}
		}
	}
}

func (s *Service) RunWorkers(ctx context.Context, numWorkers int) error {
	if s.queue == nil {
		return ErrQueueDisabled
	}

	var wg sync.WaitGroup

	s.runWorkersForStream(ctx, &wg, max(1, numWorkers), queue.StreamName((&task.RefreshTask{}).TaskType()), "refresh")

	wg.Wait()
	return nil
}

func (s *Service) runWorkersForStream(ctx context.Context, wg *sync.WaitGroup, numWorkers int, streamName, workerType string) {
	// Auto-claimer for this stream
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.minIdleTime)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				consumer := fmt.Sprintf("autoclaimer-%s-%d", workerType, time.Now().UnixNano())
				claimedMessages, err := s.queue.AutoClaim(ctx, s.groupName, consumer, streamName, s.minIdleTime)
				if err != nil {
					log.Errorf("❌ Failed to auto-claim messages for %s: %v", streamName, err)
					continue
				}
				if len(claimedMessages) > 0 {
					log.Infof("🔄 Auto-claimed %d messages from %s stream", len(claimedMessages), workerType)
					for _, msg := range claimedMessages {
						if err := s.processMessage(ctx, &msg); err != nil {
							log.Errorf("❌ Failed to process auto-claimed message %s: %v", msg.ID, err)
						}
					}
				}
			}
		}
	}()

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			consumer := fmt.Sprintf("%s-worker-%d", workerType, workerID)
			log.Infof("🚀 Starting %s worker %d as consumer %s", workerType, workerID, consumer)
			for {
				select {
				case <-ctx.Done():
					log.Infof("🛑 %s worker %d stopping", workerType, workerID)
					return
				default:
					msg, err := s.queue.GetTask(ctx, s.groupName, consumer, streamName)
					if err != nil {
						if ctx.Err() != nil {
							continue
						}
						log.Errorf("❌ Failed to get task from %s: %v", streamName, err)
						select {
						case <-ctx.Done():
						case <-time.After(s.readErrorBackoff):
						}
						continue
					}

					if msg != nil {
						if err := s.processMessage(ctx, msg); err != nil {
							log.Errorf("❌ Failed to process message %s: %v", msg.ID, err)
						}
					}
				}
			}
		}(i + 1)
	}
}

func (s *Service) processMessage(ctx context.Context, msg *redis.XMessage) error {
	taskType, ok := msg.Values["task_type"].(string)
	if !ok {
		return fmt.Errorf("invalid task type in message %s", msg.ID)
	}

	taskData, ok := msg.Values["task_data"].(string)
	if !ok {
		return fmt.Errorf("invalid task data in message %s", msg.ID)
	}

	switch taskType {
	case (&task.RefreshTask{}).TaskType():
		refreshTask, err := task.UnmarshalTask[task.RefreshTask]([]byte(taskData))
		if err != nil {
			return fmt.Errorf("failed to unmarshal refresh task data: %w", err)
		}
		s.refresh(ctx, refreshTask)

	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}

	if err := s.queue.AckTask(ctx, queue.StreamName(taskType), s.groupName, msg.ID); err != nil {
		return fmt.Errorf("failed to ack message %s: %w", msg.ID, err)
	}

	return nil
}

// refresh takes a snapshot and requeues the task on failure until it runs out of retries.
func (s *Service) refresh(ctx context.Context, refreshTask *task.RefreshTask) {
	log.Infof("🔄 Refreshing categories (%s, requested at %s)",
		refreshTask.Reason, refreshTask.RequestedAt.Format(time.RFC3339))

	if _, err := s.Snapshot(ctx); err != nil {
		if errors.Is(err, ErrSnapshotsDisabled) || refreshTask.RetryCount >= maxRefreshRetries {
			log.Errorf("❌ Refresh failed, giving up after %d attempts: %v", refreshTask.RetryCount+1, err)
			return
		}

		retryTask := &task.RefreshTask{
			Reason:      refreshTask.Reason,
			RequestedAt: refreshTask.RequestedAt,
			RetryCount:  refreshTask.RetryCount + 1,
		}
		if _, addErr := s.queue.AddTask(ctx, retryTask); addErr != nil {
			log.Errorf("❌ Failed to requeue refresh: %v", addErr)
			return
		}
		log.Warnf("🔄 Refresh failed, will retry (attempt %d): %v", retryTask.RetryCount, err)
	}
}

// document returns the parsed listing, from cache when possible.
func (s *Service) document(ctx context.Context) (*jsontree.Node, error) {
	data, err := s.loadDocument(ctx)
	if err != nil {
		return nil, err
	}

	root, err := s.extractor.Parse(data)
	if err != nil {
		s.observeExtractionError(err)
		if s.cache != nil {
			if cacheErr := s.cache.Invalidate(ctx); cacheErr != nil {
				log.Warnf("⚠️ Failed to invalidate cached listing: %v", cacheErr)
			}
		}
		return nil, fmt.Errorf("failed to parse category listing: %w", err)
	}
	return root, nil
}

func (s *Service) loadDocument(ctx context.Context) ([]byte, error) {
	if s.cache != nil {
		data, ok, err := s.cache.Get(ctx)
		switch {
		case err != nil:
			log.Warnf("⚠️ Cache unavailable, fetching from upstream: %v", err)
		case ok:
			log.Debugf("Serving category listing from cache (%d bytes)", len(data))
			return data, nil
		}
	}

	doc, err := s.client.FetchCategories(ctx)
	if err != nil {
		var statusErr *client.StatusError
		if errors.As(err, &statusErr) {
			s.metrics.ObserveUpstream(statusErr.StatusCode)
		} else {
			s.metrics.ObserveUpstream(0)
		}
		return nil, err
	}
	s.metrics.ObserveUpstream(doc.StatusCode)

	data := []byte(doc.Content)
	if s.cache != nil {
		if err := s.cache.Set(ctx, data); err != nil {
			log.Warnf("⚠️ Failed to cache category listing: %v", err)
		}
	}

	return data, nil
}

func (s *Service) observeExtractionError(err error) {
	reason := "parse"
	if errors.Is(err, jsontree.ErrDepthExceeded) {
		reason = "depth"
	}
	s.metrics.ObserveExtractionError(reason)
}
