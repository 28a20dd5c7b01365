package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/healthdesk/healthdesk-platform/internal/accounts"
	"github.com/healthdesk/healthdesk-platform/internal/cache"
	"github.com/healthdesk/healthdesk-platform/internal/observability/metrics"
	"github.com/healthdesk/healthdesk-platform/pkg/logging"
)

var reportingTracer = otel.Tracer("healthdesk.internal.reporting")

// ErrInvalidPeriod is returned for months outside 1..12 or implausible years.
var ErrInvalidPeriod = errors.New("reporting: invalid report period")

const topEarnersLimit = 10

// Service generates doctor and system monthly reports. Reports change rarely,
// so generated documents are cached; regeneration overwrites the stored row
// for the same (doctor, year, month) and is safe to repeat.
type Service struct {
	store     *Store
	directory accounts.Directory
	cache     cache.Cache
	cacheTTL  time.Duration
	metrics   *metrics.ReportingMetrics
	logger    *logging.Logger
	now       func() time.Time
}

// NewService constructs a reporting service.
func NewService(store *Store, directory accounts.Directory, c cache.Cache, cacheTTL time.Duration, m *metrics.ReportingMetrics, logger *logging.Logger) *Service {
	if store == nil {
		panic("reporting: store required")
	}
	if directory == nil {
		panic("reporting: directory required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:     store,
		directory: directory,
		cache:     c,
		cacheTTL:  cacheTTL,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// monthRange returns the first and last calendar day of a month.
func monthRange(year, month int) (time.Time, time.Time) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first, last
}

func validatePeriod(year, month int) error {
	if month < 1 || month > 12 || year < 2000 || year > 2200 {
		return ErrInvalidPeriod
	}
	return nil
}

func rate(part, total int) float64 {
	if total == 0 {
		total = 1
	}
	return float64(part) / float64(total) * 100
}

func growth(current, previous int64) float64 {
	prev := previous
	if prev == 0 {
		prev = 1
	}
	return float64(current-previous) / float64(prev) * 100
}

// GenerateDoctorMonthly computes and stores one doctor's monthly report.
// Unless force is set, a cached document is returned when present.
func (s *Service) GenerateDoctorMonthly(ctx context.Context, doctorID uuid.UUID, year, month int, force bool) (*DoctorMonthlyReport, error) {
	ctx, span := reportingTracer.Start(ctx, "reporting.doctor_monthly")
	defer span.End()
	span.SetAttributes(
		attribute.String("healthdesk.doctor_id", doctorID.String()),
		attribute.Int("healthdesk.year", year),
		attribute.Int("healthdesk.month", month),
	)
	started := s.now()

	report, err := s.generateDoctorMonthly(ctx, doctorID, year, month, force)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
	}
	s.metrics.ObserveReport("doctor", outcome, s.now().Sub(started).Seconds())
	return report, err
}

func (s *Service) generateDoctorMonthly(ctx context.Context, doctorID uuid.UUID, year, month int, force bool) (*DoctorMonthlyReport, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("doctor:%s:%d-%02d", doctorID, year, month)
	if !force && s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var r DoctorMonthlyReport
			if jerr := json.Unmarshal(data, &r); jerr == nil {
				return &r, nil
			}
		}
	}

	doctor, err := s.directory.ResolveDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return nil, fmt.Errorf("reporting: doctor %s: %w", doctorID, ErrNotFound)
		}
		return nil, fmt.Errorf("reporting: resolve doctor: %w", err)
	}

	first, last := monthRange(year, month)
	stats, err := s.store.DoctorPeriodStats(ctx, doctorID, first, last)
	if err != nil {
		return nil, err
	}

	report := &DoctorMonthlyReport{
		DoctorID:               doctorID,
		DoctorName:             doctor.User.FullName,
		Year:                   year,
		Month:                  month,
		TotalAppointments:      stats.total,
		CompletedAppointments:  stats.completed,
		CancelledAppointments:  stats.cancelled,
		PendingAppointments:    stats.pending,
		ConfirmedAppointments:  stats.confirmed,
		CompletionRate:         rate(stats.completed, stats.total),
		CancellationRate:       rate(stats.cancelled, stats.total),
		TotalEarningsCents:     stats.earningsCents,
		PotentialEarningsCents: stats.potentialCents,
		LostEarningsCents:      stats.lostCents,
		UniquePatients:         stats.uniquePatients,
		GeneratedAt:            s.now().UTC(),
	}

	if err := s.store.UpsertMonthlyReport(ctx, report); err != nil {
		return nil, err
	}
	s.cacheReport(ctx, cacheKey, report)
	s.logger.Info("doctor monthly report generated",
		"doctor_id", doctorID, "year", year, "month", month,
		"appointments", report.TotalAppointments, "earnings_cents", report.TotalEarningsCents)
	return report, nil
}

// BulkGenerate regenerates reports for the given doctors, or for every doctor
// with appointments in the period when doctorIDs is empty. One failure does
// not abort the run; each doctor's outcome is reported individually.
func (s *Service) BulkGenerate(ctx context.Context, year, month int, doctorIDs []uuid.UUID) (*BulkSummary, error) {
	ctx, span := reportingTracer.Start(ctx, "reporting.bulk_generate")
	defer span.End()

	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}

	if len(doctorIDs) == 0 {
		first, last := monthRange(year, month)
		ids, err := s.store.DoctorsWithAppointments(ctx, first, last)
		if err != nil {
			return nil, err
		}
		doctorIDs = ids
	}

	summary := &BulkSummary{
		Year:         year,
		Month:        month,
		TotalDoctors: len(doctorIDs),
		Results:      make([]BulkResult, 0, len(doctorIDs)),
	}
	for _, id := range doctorIDs {
		_, err := s.generateDoctorMonthly(ctx, id, year, month, true)
		if err != nil {
			summary.Failed++
			summary.Results = append(summary.Results, BulkResult{
				DoctorID: id, Status: "failed", Message: err.Error(),
			})
			s.logger.Error("bulk report generation failed for doctor",
				"doctor_id", id, "year", year, "month", month, "error", err)
			continue
		}
		summary.Successful++
		summary.Results = append(summary.Results, BulkResult{
			DoctorID: id, Status: "success", Message: "report generated",
		})
	}

	s.logger.Info("bulk report generation completed",
		"year", year, "month", month,
		"successful", summary.Successful, "failed", summary.Failed)
	return summary, nil
}

// SystemMonthly builds the platform-wide monthly report, including growth
// against the previous month, the top earning doctors and daily trends.
func (s *Service) SystemMonthly(ctx context.Context, year, month int) (*SystemReport, error) {
	ctx, span := reportingTracer.Start(ctx, "reporting.system_monthly")
	defer span.End()
	started := s.now()

	report, err := s.systemMonthly(ctx, year, month)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
	}
	s.metrics.ObserveReport("system", outcome, s.now().Sub(started).Seconds())
	return report, err
}

func (s *Service) systemMonthly(ctx context.Context, year, month int) (*SystemReport, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("system:%d-%02d", year, month)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var r SystemReport
			if jerr := json.Unmarshal(data, &r); jerr == nil {
				return &r, nil
			}
		}
	}

	first, last := monthRange(year, month)
	stats, err := s.store.SystemPeriodStats(ctx, first, last)
	if err != nil {
		return nil, err
	}

	prevYear, prevMonth := year, month-1
	if prevMonth < 1 {
		prevYear, prevMonth = year-1, 12
	}
	prevFirst, prevLast := monthRange(prevYear, prevMonth)
	prevStats, err := s.store.SystemPeriodStats(ctx, prevFirst, prevLast)
	if err != nil {
		return nil, err
	}

	rankings, err := s.store.TopEarners(ctx, first, last, topEarnersLimit)
	if err != nil {
		return nil, err
	}
	trends, err := s.store.DailyTrends(ctx, first, last)
	if err != nil {
		return nil, err
	}
	newPatients, err := s.store.NewUsersCount(ctx, string(accounts.RolePatient), first, last)
	if err != nil {
		return nil, err
	}
	newDoctors, err := s.store.NewUsersCount(ctx, string(accounts.RoleDoctor), first, last)
	if err != nil {
		return nil, err
	}

	if rankings == nil {
		rankings = []DoctorRanking{}
	}
	if trends == nil {
		trends = []DailyTrend{}
	}

	report := &SystemReport{
		Year:                     year,
		Month:                    month,
		TotalAppointments:        stats.total,
		CompletedAppointments:    stats.completed,
		CancelledAppointments:    stats.cancelled,
		PendingAppointments:      stats.pending,
		ConfirmedAppointments:    stats.confirmed,
		TotalEarningsCents:       stats.earningsCents,
		UniquePatients:           stats.uniquePatients,
		ActiveDoctors:            stats.activeDoctors,
		CompletionRate:           rate(stats.completed, stats.total),
		CancellationRate:         rate(stats.cancelled, stats.total),
		AppointmentGrowthPercent: growth(int64(stats.total), int64(prevStats.total)),
		EarningsGrowthPercent:    growth(stats.earningsCents, prevStats.earningsCents),
		NewPatientsThisMonth:     newPatients,
		NewDoctorsThisMonth:      newDoctors,
		DoctorRankings:           rankings,
		DailyTrends:              trends,
		GeneratedAt:              s.now().UTC(),
	}

	s.cacheReport(ctx, cacheKey, report)
	s.logger.Info("system monthly report generated",
		"year", year, "month", month,
		"appointments", report.TotalAppointments, "active_doctors", report.ActiveDoctors)
	return report, nil
}

// StoredDoctorMonthly returns the persisted roll-up without regenerating.
func (s *Service) StoredDoctorMonthly(ctx context.Context, doctorID uuid.UUID, year, month int) (*DoctorMonthlyReport, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	return s.store.GetMonthlyReport(ctx, doctorID, year, month)
}

func (s *Service) cacheReport(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.logger.Warn("report cache write failed", "key", key, "error", err)
	}
}
