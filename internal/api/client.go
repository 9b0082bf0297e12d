package api

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strconv"
	"time"

	clierrors "github.com/dl-alexandre/driveshelf/internal/errors"
	"github.com/dl-alexandre/driveshelf/internal/logging"
	"github.com/dl-alexandre/driveshelf/internal/types"
	"github.com/dl-alexandre/driveshelf/internal/utils"
	"github.com/google/uuid"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// Client wraps the Drive API with retry logic
type Client struct {
	service        *drive.Service
	resourceKeyMgr *ResourceKeyManager
	maxRetries     int
	retryDelay     time.Duration
	logger         logging.Logger
}

// NewClient creates a new Drive API client
func NewClient(service *drive.Service, maxRetries int, retryDelayMs int, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		service:        service,
		resourceKeyMgr: NewResourceKeyManager(),
		maxRetries:     maxRetries,
		retryDelay:     time.Duration(retryDelayMs) * time.Millisecond,
		logger:         logger,
	}
}

// NewRequestContext creates a new request context with trace ID
func NewRequestContext(requestType types.RequestType) *types.RequestContext {
	return &types.RequestContext{
		InvolvedFileIDs:   []string{},
		InvolvedParentIDs: []string{},
		RequestType:       requestType,
		TraceID:           uuid.New().String(),
	}
}

// ExecuteWithRetry executes an API call with retry logic
func ExecuteWithRetry[T any](ctx context.Context, client *Client, reqCtx *types.RequestContext, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	logger := client.logger.WithTraceID(reqCtx.TraceID)
	logger.Debug("API operation starting",
		logging.F("requestType", reqCtx.RequestType),
		logging.F("fileIds", reqCtx.InvolvedFileIDs),
		logging.F("parentIds", reqCtx.InvolvedParentIDs),
	)

	start := time.Now()

	for attempt := 0; attempt <= client.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return result, classifyError(err, reqCtx, client.logger)
		}
		if attempt > 0 {
			logger.Warn("Retrying API operation",
				logging.F("attempt", attempt),
				logging.F("maxRetries", client.maxRetries),
			)
		}

		result, lastErr = fn()
		if lastErr == nil {
			logger.Debug("API operation completed",
				logging.F("duration_ms", time.Since(start).Milliseconds()),
				logging.F("attempts", attempt+1),
			)
			return result, nil
		}

		if !isRetryable(lastErr) {
			logger.Error("API operation failed (non-retryable)",
				logging.F("duration_ms", time.Since(start).Milliseconds()),
				logging.F("error", lastErr.Error()),
				logging.F("attempts", attempt+1),
			)
			return result, classifyError(lastErr, reqCtx, client.logger)
		}

		if attempt < client.maxRetries {
			delay := calculateBackoff(client.retryDelay, attempt, lastErr)
			logger.Warn("API operation failed (retryable)",
				logging.F("attempt", attempt+1),
				logging.F("delay_ms", delay.Milliseconds()),
				logging.F("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return result, classifyError(ctx.Err(), reqCtx, client.logger)
			case <-time.After(delay):
			}
		}
	}

	logger.Error("API operation failed after max retries",
		logging.F("duration_ms", time.Since(start).Milliseconds()),
		logging.F("attempts", client.maxRetries+1),
		logging.F("error", lastErr.Error()),
	)

	return result, classifyError(lastErr, reqCtx, client.logger)
}

// isRetryable checks if an error is retryable
func isRetryable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 502, 503, 504:
			return true
		case 403:
			for _, e := range apiErr.Errors {
				switch e.Reason {
				case "userRateLimitExceeded", "rateLimitExceeded":
					return true
				}
			}
		}
	}
	return false
}

// calculateBackoff calculates the retry delay with exponential backoff
func calculateBackoff(baseDelay time.Duration, attempt int, err error) time.Duration {
	maxDelay := time.Duration(utils.MaxRetryDelayMs) * time.Millisecond

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Header != nil {
		if retryAfter := apiErr.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil {
				delay := time.Duration(seconds) * time.Second
				if delay > maxDelay {
					return maxDelay
				}
				return delay
			}
		}
	}

	delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))
	if delay > maxDelay {
		delay = maxDelay
	}

	// Jitter of +/-25%
	jitterRange := delay / 4
	if jitterRange > 0 {
		jitter := time.Duration(rand.Int63n(int64(jitterRange*2))) - jitterRange
		delay = delay + jitter
	}

	if delay < 0 {
		delay = baseDelay
	}

	return delay
}

func classifyError(err error, reqCtx *types.RequestContext, logger logging.Logger) error {
	return clierrors.ClassifyGoogleAPIError("drive", err, reqCtx, logger)
}

// Service returns the underlying Drive service
func (c *Client) Service() *drive.Service {
	return c.service
}

// ResourceKeys returns the resource key manager
func (c *Client) ResourceKeys() *ResourceKeyManager {
	return c.resourceKeyMgr
}

// Logger returns the client's logger
func (c *Client) Logger() logging.Logger {
	return c.logger
}
