package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hellyrj/smart-parking-system/internal/metrics"
	"github.com/hellyrj/smart-parking-system/internal/service"
	"github.com/hellyrj/smart-parking-system/pkg/logger"
	pkgredis "github.com/hellyrj/smart-parking-system/pkg/redis"
	"go.uber.org/zap"
)

const sweepLockKey = "parking:expiry-sweep:leader"

// ExpiredBookingLister finds WAITING bookings past their deadline
type ExpiredBookingLister interface {
	ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// Locker grants the sweep to one replica at a time
type Locker interface {
	// TryLock returns a release func, or nil when another holder owns the key
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

type redisLocker struct {
	client *pkgredis.Client
}

// NewRedisLocker adapts the redis client lock to Locker
func NewRedisLocker(client *pkgredis.Client) Locker {
	return &redisLocker{client: client}
}

func (l *redisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := l.client.TryLock(ctx, key, ttl)
	if err != nil || lock == nil {
		return nil, err
	}
	return lock.Release, nil
}

// ExpiryWorkerConfig contains configuration for the expiry worker
type ExpiryWorkerConfig struct {
	// ScanInterval is the interval between sweeps
	ScanInterval time.Duration
	// BatchSize is the number of bookings expired per sweep
	BatchSize int
	// LockTTL bounds how long a crashed leader keeps the sweep
	LockTTL time.Duration
}

// DefaultExpiryWorkerConfig returns default configuration
func DefaultExpiryWorkerConfig() *ExpiryWorkerConfig {
	return &ExpiryWorkerConfig{
		ScanInterval: 30 * time.Second,
		BatchSize:    100,
		LockTTL:      25 * time.Second,
	}
}

// ExpiryWorker releases spots held by reservations nobody confirmed in time
type ExpiryWorker struct {
	bookings       ExpiredBookingLister
	bookingService service.BookingService
	locker         Locker
	config         *ExpiryWorkerConfig
	log            *logger.Logger
	now            func() time.Time
	stopCh         chan struct{}
	wg             sync.WaitGroup
	mu             sync.Mutex
	running        bool

	totalExpired     int64
	totalFailed      int64
	skippedSweeps    int64
	lastScanTime     time.Time
	lastExpiredCount int
}

// NewExpiryWorker creates a new expiry worker. A nil locker runs every sweep locally.
func NewExpiryWorker(
	bookings ExpiredBookingLister,
	bookingService service.BookingService,
	locker Locker,
	config *ExpiryWorkerConfig,
) *ExpiryWorker {
	defaults := DefaultExpiryWorkerConfig()
	if config == nil {
		config = defaults
	}
	if config.ScanInterval <= 0 {
		config.ScanInterval = defaults.ScanInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.LockTTL <= 0 {
		config.LockTTL = config.ScanInterval
	}

	return &ExpiryWorker{
		bookings:       bookings,
		bookingService: bookingService,
		locker:         locker,
		config:         config,
		log:            logger.Get(),
		now:            time.Now,
		stopCh:         make(chan struct{}),
	}
}

// Start starts the expiry worker
func (w *ExpiryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("expiry worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting expiry worker",
		zap.Duration("interval", w.config.ScanInterval),
		zap.Int("batch_size", w.config.BatchSize),
	)

	w.wg.Add(1)
	go w.run(ctx)

	return nil
}

// Stop stops the expiry worker and waits for the current sweep
func (w *ExpiryWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping expiry worker")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Expiry worker stopped")
}

func (w *ExpiryWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	w.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep expires one batch of overdue reservations and returns how many it expired
func (w *ExpiryWorker) Sweep(ctx context.Context) int {
	start := w.now()

	if w.locker != nil {
		release, err := w.locker.TryLock(ctx, sweepLockKey, w.config.LockTTL)
		if err != nil {
			w.log.Warn("Failed to acquire sweep lock", zap.Error(err))
			return 0
		}
		if release == nil {
			w.mu.Lock()
			w.skippedSweeps++
			w.mu.Unlock()
			return 0
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				w.log.Warn("Failed to release sweep lock", zap.Error(err))
			}
		}()
	}

	ids, err := w.bookings.ListExpiredIDs(ctx, start, w.config.BatchSize)
	if err != nil {
		w.log.Error("Failed to list expired reservations", zap.Error(err))
		return 0
	}

	expired, failed := 0, 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		ok, err := w.bookingService.ExpireBooking(ctx, id, service.TriggerSweep)
		if err != nil {
			failed++
			w.log.Error("Failed to expire booking", zap.String("booking_id", id), zap.Error(err))
			continue
		}
		// false means the booking was confirmed or cancelled since it was listed
		if ok {
			expired++
		}
	}

	if len(ids) > 0 {
		w.log.Info("Expiry sweep finished",
			zap.Int("candidates", len(ids)),
			zap.Int("expired", expired),
			zap.Int("failed", failed),
		)
	}
	metrics.RecordSweep(ctx, w.now().Sub(start).Seconds(), expired)

	w.mu.Lock()
	w.lastScanTime = start
	w.lastExpiredCount = expired
	w.totalExpired += int64(expired)
	w.totalFailed += int64(failed)
	w.mu.Unlock()

	return expired
}

// GetStats returns worker statistics
func (w *ExpiryWorker) GetStats() *ExpiryWorkerStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &ExpiryWorkerStats{
		IsRunning:        w.running,
		TotalExpired:     w.totalExpired,
		TotalFailed:      w.totalFailed,
		SkippedSweeps:    w.skippedSweeps,
		LastScanTime:     w.lastScanTime,
		LastExpiredCount: w.lastExpiredCount,
	}
}

// ExpiryWorkerStats contains worker statistics
type ExpiryWorkerStats struct {
	IsRunning        bool      `json:"is_running"`
	TotalExpired     int64     `json:"total_expired"`
	TotalFailed      int64     `json:"total_failed"`
	SkippedSweeps    int64     `json:"skipped_sweeps"`
	LastScanTime     time.Time `json:"last_scan_time"`
	LastExpiredCount int       `json:"last_expired_count"`
}
