package cli

import (
	"fmt"
	"io"

	"github.com/Shahid-khan015/FarmTrack/internal/fleet"
	"github.com/Shahid-khan015/FarmTrack/internal/models"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var reportQuery fleet.WindowQuery

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a fleet report",
	Long: `Build a report of operations, fuel and alerts for a time window and print it.

Without flags the window is today.

Examples:
  farmtrack report
  farmtrack report --filter day --date 2024-03-15
  farmtrack report --filter date-range --start-date 2024-03-01 --end-date 2024-03-31
  farmtrack report --filter datetime-range --start-date 2024-03-15 --start-time 06:00 --end-date 2024-03-15 --end-time 18:00`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		report, err := fleet.NewService(st).BuildReport(cmd.Context(), reportQuery)
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), report)
		return nil
	},
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportQuery.FilterType, "filter", models.FilterToday, "Window type (today|day|date-range|datetime-range)")
	f.StringVar(&reportQuery.Date, "date", "", "Day for --filter day (YYYY-MM-DD)")
	f.StringVar(&reportQuery.StartDate, "start-date", "", "First day of a range (YYYY-MM-DD)")
	f.StringVar(&reportQuery.EndDate, "end-date", "", "Last day of a range (YYYY-MM-DD)")
	f.StringVar(&reportQuery.StartTime, "start-time", "", "Start clock time for datetime-range (HH:MM)")
	f.StringVar(&reportQuery.EndTime, "end-time", "", "End clock time for datetime-range (HH:MM)")
}

const reportTimeLayout = "2006-01-02 15:04"

func printReport(w io.Writer, r *models.Report) {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)

	bold.Fprintf(w, "Report %s to %s\n", r.Window.Start.Format(reportTimeLayout), r.Window.End.Format(reportTimeLayout))
	fmt.Fprintf(w, "  Hours worked: %.2f\n", r.TotalHours)
	fmt.Fprintf(w, "  Area covered: %.2f ha\n", r.TotalArea)
	fmt.Fprintf(w, "  Fuel used:    %.2f L\n", r.FuelUsed)
	if r.Breakdowns > 0 {
		red.Fprintf(w, "  Breakdowns:   %d\n", r.Breakdowns)
	} else {
		fmt.Fprintf(w, "  Breakdowns:   %d\n", r.Breakdowns)
	}
	fmt.Fprintf(w, "  Alerts:       %d\n", r.Alerts)

	fmt.Fprintln(w)
	cyan.Fprintf(w, "Operations (%d)\n", len(r.Operations))
	for _, op := range r.Operations {
		status := green.Sprint("done")
		if op.EndTime == nil {
			status = yellow.Sprint("active")
		}
		fmt.Fprintf(w, "  %s  %-10s %-24s %-18s %6.2fh %6.2fha  %s\n",
			op.StartTime.Format(reportTimeLayout), op.OperationType, op.TractorName,
			op.OperatorName, op.Duration, op.AreaCovered, status)
	}

	fmt.Fprintln(w)
	cyan.Fprintf(w, "Fuel logs (%d)\n", len(r.FuelLogs))
	for _, f := range r.FuelLogs {
		fmt.Fprintf(w, "  %s  %-24s %8.2f L\n", f.Timestamp.Format(reportTimeLayout), f.TractorName, f.Quantity)
	}

	fmt.Fprintln(w)
	cyan.Fprintf(w, "Alerts (%d)\n", len(r.AlertLogs))
	for _, a := range r.AlertLogs {
		mark := red.Sprint("open")
		if a.IsResolved {
			mark = green.Sprint("resolved")
		}
		fmt.Fprintf(w, "  %s  %-12s %s  %s\n", a.Timestamp.Format(reportTimeLayout), a.AlertType, a.Message, mark)
	}
}
