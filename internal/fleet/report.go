package fleet

import (
	"context"
	"fmt"

	"github.com/Shahid-khan015/FarmTrack/internal/models"
)

const (
	defaultWorkingWidth = 2.0 // meters, when the implement has none
	averageSpeedKmh     = 5.0
	recentOperations    = 5
)

// areaCovered estimates worked area from implement width in meters and hours
// of work at the average field speed.
func areaCovered(workingWidth, hours float64) float64 {
	if workingWidth <= 0 {
		workingWidth = defaultWorkingWidth
	}
	return workingWidth * averageSpeedKmh * hours / 10
}

// BuildReport aggregates operations, fuel and alerts in the requested window.
// Operations still running are measured up to now.
func (s *Service) BuildReport(ctx context.Context, q WindowQuery) (*models.Report, error) {
	now := s.clock()
	window, err := ResolveWindow(q, now)
	if err != nil {
		return nil, err
	}

	spans, err := s.store.FindOperationSpans(ctx, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	fuel, err := s.store.FindFuelSpans(ctx, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query fuel logs: %w", err)
	}
	alerts, err := s.store.FindAlertsBetween(ctx, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}

	report := &models.Report{
		Window:     window,
		Operations: make([]models.ReportOperation, 0, len(spans)),
		FuelLogs:   make([]models.ReportFuelLog, 0, len(fuel)),
		AlertLogs:  make([]models.ReportAlert, 0, len(alerts)),
	}

	for _, sp := range spans {
		end := now
		if sp.EndTime != nil {
			end = *sp.EndTime
		}
		hours := end.Sub(sp.StartTime).Hours()
		area := areaCovered(sp.WorkingWidth, hours)
		report.TotalHours += hours
		report.TotalArea += area
		report.Operations = append(report.Operations, models.ReportOperation{
			ID:            sp.ID,
			OperationType: sp.OperationType,
			TractorName:   sp.TractorName,
			OperatorName:  sp.OperatorName,
			StartTime:     sp.StartTime,
			EndTime:       sp.EndTime,
			Duration:      hours,
			AreaCovered:   area,
		})
	}

	for _, f := range fuel {
		name := "Unknown"
		if f.RegistrationNumber != nil && *f.RegistrationNumber != "" {
			name = *f.RegistrationNumber
		}
		report.FuelUsed += f.Quantity
		report.FuelLogs = append(report.FuelLogs, models.ReportFuelLog{
			ID: f.ID, Quantity: f.Quantity, TractorName: name, Timestamp: f.Timestamp,
		})
	}

	for _, a := range alerts {
		if a.AlertType == models.AlertTypeBreakdown {
			report.Breakdowns++
		}
		report.AlertLogs = append(report.AlertLogs, models.ReportAlert{
			ID: a.ID, Message: a.Message, AlertType: a.AlertType, Timestamp: a.Timestamp, IsResolved: a.IsResolved,
		})
	}
	report.Alerts = len(alerts)

	return report, nil
}

// Dashboard summarizes the fleet: counts, today's fuel and recent operations.
func (s *Service) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	now := s.clock()
	var stats models.DashboardStats
	var err error

	if stats.TractorsCount, err = s.store.CountTractors(ctx); err != nil {
		return nil, fmt.Errorf("failed to count tractors: %w", err)
	}
	if stats.ImplementsCount, err = s.store.CountImplements(ctx); err != nil {
		return nil, fmt.Errorf("failed to count implements: %w", err)
	}
	if stats.ActiveOperations, err = s.store.CountActiveOperations(ctx); err != nil {
		return nil, fmt.Errorf("failed to count active operations: %w", err)
	}
	today := startOfDay(now)
	if stats.TodayFuelUsage, err = s.store.SumFuel(ctx, today, today.AddDate(0, 0, 1)); err != nil {
		return nil, fmt.Errorf("failed to sum fuel: %w", err)
	}
	if stats.UnresolvedAlerts, err = s.store.CountUnresolvedAlerts(ctx); err != nil {
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}
	if stats.RecentOperations, err = s.store.FindRecentOperations(ctx, recentOperations); err != nil {
		return nil, fmt.Errorf("failed to list recent operations: %w", err)
	}
	return &stats, nil
}
