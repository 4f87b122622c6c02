package services

import (
	"context"
	"sync"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/pkg/batch"

	"go.uber.org/zap"
)

type probeService struct {
	fetcher   ports.UpstreamFetcher
	batchSize int
	timeout   time.Duration
	logger    *zap.SugaredLogger
}

// NewHealthProber creates the batch liveness prober. batchSize caps the number
// of simultaneous outbound probes; timeout bounds each individual probe.
func NewHealthProber(fetcher ports.UpstreamFetcher, batchSize int, timeout time.Duration, logger *zap.SugaredLogger) ports.HealthProber {
	return &probeService{
		fetcher:   fetcher,
		batchSize: batchSize,
		timeout:   timeout,
		logger:    logger,
	}
}

// ProbeAll probes the deduplicated URL set batch by batch. Within a batch all
// probes run concurrently; the next batch starts only once the whole batch has
// completed, so simultaneous connections never exceed the batch size. Results
// arrive in batch-completion order and the channel closes after the last one.
func (s *probeService) ProbeAll(ctx context.Context, urls []string, onProgress func(domain.ProbeProgress)) <-chan domain.ProbeResult {
	deduped := batch.Dedupe(urls)
	results := make(chan domain.ProbeResult)

	go func() {
		defer close(results)

		total := len(deduped)
		checked := 0
		start := time.Now()

		for _, group := range batch.Partition(deduped, s.batchSize) {
			batchResults := make([]domain.ProbeResult, len(group))

			var wg sync.WaitGroup
			for i, rawURL := range group {
				wg.Add(1)
				go func(i int, rawURL string) {
					defer wg.Done()
					batchResults[i] = s.probeOne(ctx, rawURL)
				}(i, rawURL)
			}
			wg.Wait()

			checked += len(group)

			for _, result := range batchResults {
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}

			if onProgress != nil {
				onProgress(domain.ProbeProgress{Checked: checked, Total: total})
			}
		}

		if s.logger != nil {
			s.logger.Infow("probe run completed",
				"urls", total,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}
	}()

	return results
}

// probeOne performs a single liveness check. Every failure mode, including
// timeout, DNS failure and connection refused, becomes an offline result;
// nothing propagates past the scheduler.
func (s *probeService) probeOne(ctx context.Context, rawURL string) (result domain.ProbeResult) {
	start := time.Now()
	result = domain.ProbeResult{URL: rawURL, Status: domain.ProbeOffline}

	defer func() {
		if r := recover(); r != nil {
			result.Status = domain.ProbeOffline
			result.LatencyMs = time.Since(start).Milliseconds()
			if s.logger != nil {
				s.logger.Warnw("probe panicked", "url", rawURL, "panic", r)
			}
		}
	}()

	probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.fetcher.Head(probeCtx, rawURL)
	result.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		return result
	}
	defer resp.Body.Close()

	// 2xx and 3xx count as online; redirects usually lead to a live stream
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = domain.ProbeOnline
	}
	return result
}
