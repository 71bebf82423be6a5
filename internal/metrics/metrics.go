package metrics

import (
	"context"
	"sync"

	"github.com/hellyrj/smart-parking-system/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// Lifecycle counters
	ReservationsTotal  *telemetry.Counter
	ConfirmationsTotal *telemetry.Counter
	ExpirationsTotal   *telemetry.Counter
	CancellationsTotal *telemetry.Counter
	CompletionsTotal   *telemetry.Counter

	// Rejections and faults
	NoCapacityTotal          *telemetry.Counter
	InvariantViolationsTotal *telemetry.Counter
	SettlementsTotal         *telemetry.Counter

	// Revenue in cents so it fits an integer counter
	RevenueCents *telemetry.Counter

	// Histograms
	SessionDuration *telemetry.Histogram
	SweepDuration   *telemetry.Histogram

	// Gauges
	OpenReservations *telemetry.UpDownCounter

	initOnce sync.Once
	initErr  error
)

// Init initializes all parking metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	counters := []struct {
		target **telemetry.Counter
		opts   telemetry.MetricOpts
	}{
		{&ReservationsTotal, telemetry.MetricOpts{Name: "parking_reservations_total", Description: "Total number of reservations created", Unit: "1"}},
		{&ConfirmationsTotal, telemetry.MetricOpts{Name: "parking_confirmations_total", Description: "Total number of reservations turned into sessions", Unit: "1"}},
		{&ExpirationsTotal, telemetry.MetricOpts{Name: "parking_expirations_total", Description: "Total number of expired reservations", Unit: "1"}},
		{&CancellationsTotal, telemetry.MetricOpts{Name: "parking_cancellations_total", Description: "Total number of cancelled bookings", Unit: "1"}},
		{&CompletionsTotal, telemetry.MetricOpts{Name: "parking_completions_total", Description: "Total number of completed sessions", Unit: "1"}},
		{&NoCapacityTotal, telemetry.MetricOpts{Name: "parking_no_capacity_total", Description: "Total number of claims rejected for lack of spots", Unit: "1"}},
		{&InvariantViolationsTotal, telemetry.MetricOpts{Name: "parking_invariant_violations_total", Description: "Total number of spot counter invariant violations", Unit: "1"}},
		{&SettlementsTotal, telemetry.MetricOpts{Name: "parking_settlements_total", Description: "Total number of charge settlements by outcome", Unit: "1"}},
		{&RevenueCents, telemetry.MetricOpts{Name: "parking_revenue_cents_total", Description: "Billed amount in cents", Unit: "1"}},
	}
	for _, c := range counters {
		counter, err := telemetry.NewCounter(c.opts)
		if err != nil {
			return err
		}
		*c.target = counter
	}

	var err error
	SessionDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "parking_session_duration_minutes",
		Description: "Duration of completed parking sessions",
		Unit:        "min",
	}, []float64{15, 30, 60, 120, 180, 240, 480, 720, 1440}) // 15min to 1 day
	if err != nil {
		return err
	}

	SweepDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "parking_expiry_sweep_duration_seconds",
		Description: "Duration of one expiry sweep",
		Unit:        "s",
	}, []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30})
	if err != nil {
		return err
	}

	OpenReservations, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "parking_open_reservations",
		Description: "Current number of WAITING reservations",
		Unit:        "1",
	})
	return err
}

// RecordReservation records a reservation metric
func RecordReservation(ctx context.Context, spaceID string) {
	if ReservationsTotal != nil {
		ReservationsTotal.Inc(ctx, attribute.String("space_id", spaceID))
	}
	if OpenReservations != nil {
		OpenReservations.Inc(ctx)
	}
}

// RecordConfirmation records a reservation turned into a session
func RecordConfirmation(ctx context.Context, spaceID, by string) {
	if ConfirmationsTotal != nil {
		ConfirmationsTotal.Inc(ctx, attribute.String("space_id", spaceID), attribute.String("by", by))
	}
	if OpenReservations != nil {
		OpenReservations.Dec(ctx)
	}
}

// RecordExpiration records an expired reservation
func RecordExpiration(ctx context.Context, spaceID, trigger string) {
	if ExpirationsTotal != nil {
		ExpirationsTotal.Inc(ctx, attribute.String("space_id", spaceID), attribute.String("trigger", trigger))
	}
	if OpenReservations != nil {
		OpenReservations.Dec(ctx)
	}
}

// RecordCancellation records a cancelled booking. wasWaiting tells whether the gauge moves.
func RecordCancellation(ctx context.Context, spaceID, by string, wasWaiting bool) {
	if CancellationsTotal != nil {
		CancellationsTotal.Inc(ctx, attribute.String("space_id", spaceID), attribute.String("by", by))
	}
	if wasWaiting && OpenReservations != nil {
		OpenReservations.Dec(ctx)
	}
}

// RecordCompletion records a completed session and its bill
func RecordCompletion(ctx context.Context, spaceID string, durationMinutes float64, amountCents int64) {
	if CompletionsTotal != nil {
		CompletionsTotal.Inc(ctx, attribute.String("space_id", spaceID))
	}
	if SessionDuration != nil {
		SessionDuration.Record(ctx, durationMinutes)
	}
	if RevenueCents != nil {
		RevenueCents.Add(ctx, amountCents)
	}
}

// RecordNoCapacity records a claim rejected for lack of spots
func RecordNoCapacity(ctx context.Context, spaceID string) {
	if NoCapacityTotal != nil {
		NoCapacityTotal.Inc(ctx, attribute.String("space_id", spaceID))
	}
}

// RecordInvariantViolation records a counter invariant violation
func RecordInvariantViolation(ctx context.Context, operation string) {
	if InvariantViolationsTotal != nil {
		InvariantViolationsTotal.Inc(ctx, attribute.String("operation", operation))
	}
}

// RecordSettlement records a settlement outcome
func RecordSettlement(ctx context.Context, method, status string) {
	if SettlementsTotal != nil {
		SettlementsTotal.Inc(ctx, attribute.String("method", method), attribute.String("status", status))
	}
}

// RecordSweep records one expiry sweep
func RecordSweep(ctx context.Context, durationSeconds float64, expired int) {
	if SweepDuration != nil {
		SweepDuration.Record(ctx, durationSeconds, attribute.Int("expired", expired))
	}
}
