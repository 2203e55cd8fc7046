package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/playmix/creatorpay/internal/earnings"
	"github.com/playmix/creatorpay/internal/logging"
	"github.com/playmix/creatorpay/internal/models"
	"github.com/playmix/creatorpay/internal/monitoring"
	"github.com/playmix/creatorpay/internal/payout"
)

// Scheduler runs the two unattended payout jobs: manufacturing monthly
// earnings periods for every active creator, and evaluating automatic
// payout schedules once per day.
type Scheduler struct {
	db       *pgxpool.Pool
	earnings *earnings.Service
	payouts  *payout.Service
	interval time.Duration
	logger   zerolog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	lastPeriodRun time.Time
	lastPayoutDay string
	lastResult    *RunResult
}

// RunResult summarizes one scheduler pass
type RunResult struct {
	RanAt            time.Time `json:"ran_at"`
	PeriodsCreated   int       `json:"periods_created"`
	PeriodsSkipped   int       `json:"periods_skipped"`
	PayoutsEvaluated int       `json:"payouts_evaluated"`
	PayoutsTriggered int       `json:"payouts_triggered"`
	Errors           int       `json:"errors"`
}

// New creates a scheduler. interval is how often the loop wakes up; the
// jobs themselves decide whether any work is due.
func New(db *pgxpool.Pool, earningsService *earnings.Service, payoutService *payout.Service, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		db:       db,
		earnings: earningsService,
		payouts:  payoutService,
		interval: interval,
		logger:   logging.NewLogger("scheduler"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info().Dur("interval", s.interval).Msg("Payout scheduler started")
	return nil
}

// Stop stops the scheduler and waits for an in-progress pass to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info().Msg("Payout scheduler stopped")
}

// IsRunning returns whether the scheduler loop is active
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs whichever jobs are due at the current wall time
func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()
	result := &RunResult{RanAt: now}

	// Period manufacturing is idempotent through the overlap check, but
	// only needs to run once after each month rolls over.
	monthStart, _ := LastCalendarMonth(now)
	s.mu.Lock()
	periodsDue := s.lastPeriodRun.Before(monthStart.AddDate(0, 1, 0))
	s.mu.Unlock()
	if periodsDue {
		if err := s.runPeriodManufacturing(ctx, now, result); err != nil {
			s.logger.Error().Err(err).Msg("Period manufacturing failed")
			monitoring.Get().SchedulerRuns.WithLabelValues("period_manufacturing", "error").Inc()
			result.Errors++
		} else {
			s.mu.Lock()
			s.lastPeriodRun = now
			s.mu.Unlock()
			monitoring.Get().SchedulerRuns.WithLabelValues("period_manufacturing", "ok").Inc()
		}
	}

	// Automatic payouts are evaluated once per calendar day
	today := now.Format("2006-01-02")
	s.mu.Lock()
	payoutsDue := s.lastPayoutDay != today
	s.mu.Unlock()
	if payoutsDue {
		if err := s.runAutomaticPayouts(ctx, now, result); err != nil {
			s.logger.Error().Err(err).Msg("Automatic payout evaluation failed")
			monitoring.Get().SchedulerRuns.WithLabelValues("automatic_payouts", "error").Inc()
			result.Errors++
		} else {
			s.mu.Lock()
			s.lastPayoutDay = today
			s.mu.Unlock()
			monitoring.Get().SchedulerRuns.WithLabelValues("automatic_payouts", "ok").Inc()
		}
	}

	s.mu.Lock()
	s.lastResult = result
	s.mu.Unlock()
}

// LastCalendarMonth returns the first and last day of the month before
// the one containing now.
func LastCalendarMonth(now time.Time) (time.Time, time.Time) {
	firstOfThisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	start := firstOfThisMonth.AddDate(0, -1, 0)
	end := firstOfThisMonth.AddDate(0, 0, -1)
	return start, end
}

// runPeriodManufacturing creates last month's earnings period for every
// creator that owns at least one video and does not have one yet
func (s *Scheduler) runPeriodManufacturing(ctx context.Context, now time.Time, result *RunResult) error {
	start, end := LastCalendarMonth(now)

	rows, err := s.db.Query(ctx, `SELECT DISTINCT creator_id FROM videos`)
	if err != nil {
		return fmt.Errorf("failed to enumerate creators: %w", err)
	}
	defer rows.Close()

	var creators []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan creator id: %w", err)
		}
		creators = append(creators, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read creators: %w", err)
	}

	for _, creatorID := range creators {
		_, err := s.earnings.CreateEarningsPeriod(ctx, creatorID, start, end)
		switch {
		case err == nil:
			result.PeriodsCreated++
		case errors.Is(err, earnings.ErrPeriodOverlap):
			result.PeriodsSkipped++
		default:
			result.Errors++
			s.logger.Warn().
				Err(err).
				Str("creator_id", creatorID.String()).
				Msg("Failed to create monthly period")
		}
	}

	s.logger.Info().
		Time("start", start).
		Time("end", end).
		Int("created", result.PeriodsCreated).
		Int("skipped", result.PeriodsSkipped).
		Msg("Monthly period manufacturing finished")

	return nil
}

// PayoutDue reports whether a creator's schedule fires on the given day.
// PayoutDay means day-of-month for monthly and weekday for weekly and
// biweekly; biweekly additionally requires an even week-of-month.
func PayoutDue(frequency models.PayoutFrequency, payoutDay int, now time.Time) bool {
	switch frequency {
	case models.PayoutFrequencyMonthly:
		return now.Day() == payoutDay
	case models.PayoutFrequencyWeekly:
		return int(now.Weekday()) == payoutDay
	case models.PayoutFrequencyBiweekly:
		if int(now.Weekday()) != payoutDay {
			return false
		}
		weekOfMonth := (now.Day() - 1) / 7
		return weekOfMonth%2 == 0
	default:
		return false
	}
}

// runAutomaticPayouts evaluates every opted-in creator's schedule and
// fires the automatic payout trigger for those due today. One creator's
// failure never aborts the loop for the rest.
func (s *Scheduler) runAutomaticPayouts(ctx context.Context, now time.Time, result *RunResult) error {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, payout_frequency, payout_day
		FROM payout_settings
		WHERE automatic_payouts = true
	`)
	if err != nil {
		return fmt.Errorf("failed to query payout settings: %w", err)
	}
	defer rows.Close()

	type candidate struct {
		userID    uuid.UUID
		frequency models.PayoutFrequency
		day       int
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.userID, &c.frequency, &c.day); err != nil {
			return fmt.Errorf("failed to scan payout settings: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read payout settings: %w", err)
	}

	for _, c := range candidates {
		if !PayoutDue(c.frequency, c.day, now) {
			continue
		}
		result.PayoutsEvaluated++

		triggered, err := s.payouts.TriggerAutomaticPayout(ctx, c.userID)
		if err != nil {
			result.Errors++
			s.logger.Warn().
				Err(err).
				Str("creator_id", c.userID.String()).
				Msg("Automatic payout trigger failed")
			continue
		}
		if triggered {
			result.PayoutsTriggered++
		}
	}

	s.logger.Info().
		Int("evaluated", result.PayoutsEvaluated).
		Int("triggered", result.PayoutsTriggered).
		Msg("Automatic payout evaluation finished")

	return nil
}

// RunNow forces a full pass regardless of the due-time guards
func (s *Scheduler) RunNow(ctx context.Context) (*RunResult, error) {
	now := time.Now()
	result := &RunResult{RanAt: now}

	if err := s.runPeriodManufacturing(ctx, now, result); err != nil {
		return nil, err
	}
	if err := s.runAutomaticPayouts(ctx, now, result); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.lastPeriodRun = now
	s.lastPayoutDay = now.Format("2006-01-02")
	s.lastResult = result
	s.mu.Unlock()

	return result, nil
}

// Status describes the scheduler's current state
type Status struct {
	Running    bool       `json:"running"`
	Interval   string     `json:"interval"`
	LastResult *RunResult `json:"last_result,omitempty"`
}

// GetStatus returns the scheduler's current state
func (s *Scheduler) GetStatus() *Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &Status{
		Running:    s.running,
		Interval:   s.interval.String(),
		LastResult: s.lastResult,
	}
}
