package models

import "time"

// Report filter types accepted by the reporting endpoint.
const (
	FilterDay           = "day"
	FilterDateRange     = "date-range"
	FilterDateTimeRange = "datetime-range"
	FilterToday         = "today"
)

// ReportWindow is the inclusive time window a report covers.
type ReportWindow struct {
	FilterType string    `json:"filterType"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// ReportOperation is one operation line of a report.
type ReportOperation struct {
	ID            string        `json:"id"`
	OperationType OperationType `json:"operationType"`
	TractorName   string        `json:"tractorName"`
	OperatorName  string        `json:"operatorName"`
	StartTime     time.Time     `json:"startTime"`
	EndTime       *time.Time    `json:"endTime"`
	Duration      float64       `json:"duration"`
	AreaCovered   float64       `json:"areaCovered"`
}

// ReportFuelLog is one fuel line of a report.
type ReportFuelLog struct {
	ID          string    `json:"id"`
	Quantity    float64   `json:"quantity"`
	TractorName string    `json:"tractorName"`
	Timestamp   time.Time `json:"timestamp"`
}

// ReportAlert is one alert line of a report.
type ReportAlert struct {
	ID         string    `json:"id"`
	Message    string    `json:"message"`
	AlertType  string    `json:"alertType"`
	Timestamp  time.Time `json:"timestamp"`
	IsResolved bool      `json:"isResolved"`
}

// Report aggregates work, fuel and alerts over a window.
type Report struct {
	Window     ReportWindow      `json:"window"`
	TotalHours float64           `json:"totalHours"`
	TotalArea  float64           `json:"totalArea"`
	FuelUsed   float64           `json:"fuelUsed"`
	Breakdowns int               `json:"breakdowns"`
	Alerts     int               `json:"alerts"`
	Operations []ReportOperation `json:"operations"`
	FuelLogs   []ReportFuelLog   `json:"fuelLogs"`
	AlertLogs  []ReportAlert     `json:"alertLogs"`
}

// RecentOperation is a dashboard line for a recently started operation.
type RecentOperation struct {
	ID            string          `json:"id"`
	OperationType OperationType   `json:"operationType"`
	TractorName   string          `json:"tractorName"`
	OperatorName  string          `json:"operatorName"`
	Status        OperationStatus `json:"status"`
	StartTime     time.Time       `json:"startTime"`
}

// DashboardStats summarizes the fleet for the dashboard.
type DashboardStats struct {
	TractorsCount    int               `json:"tractorsCount"`
	ImplementsCount  int               `json:"implementsCount"`
	ActiveOperations int               `json:"activeOperations"`
	TodayFuelUsage   float64           `json:"todayFuelUsage"`
	UnresolvedAlerts int               `json:"unresolvedAlerts"`
	RecentOperations []RecentOperation `json:"recentOperations"`
}

// OperationSpan is the minimal joined row the report aggregation works on.
type OperationSpan struct {
	ID            string
	OperationType OperationType
	TractorName   string
	OperatorName  string
	StartTime     time.Time
	EndTime       *time.Time
	WorkingWidth  float64
}

// FuelSpan is a fuel log joined with its tractor registration number.
type FuelSpan struct {
	ID                 string
	Quantity           float64
	RegistrationNumber *string
	Timestamp          time.Time
}
