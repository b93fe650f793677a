package scenario

import (
	"fmt"
	"time"
)

// Report は結果をフォーマットして返す
func (r *Result) Report() string {
	termination := "CLEAN"
	if !r.CleanShutdown {
		termination = "FORCED / INTERRUPTED"
	}

	report := fmt.Sprintf(`
================================================================================
                         SCENARIO REPORT: %s
================================================================================

EXECUTION SUMMARY
-----------------
  Start Time:     %s
  End Time:       %s
  Duration:       %v
  Termination:    %s

BUFFER METRICS
--------------
  Produced:         %d
  Consumed:         %d
  Max Depth:        %d
  Full Waits:       %d
  Empty Waits:      %d

POOL STATISTICS
---------------
  Submitted:        %d
  Rejected:         %d
  Abandoned:        %d
  Avg Session:      %v

STAGES
------
`,
		r.ScenarioName,
		r.StartTime.Format("2006-01-02 15:04:05"),
		r.EndTime.Format("2006-01-02 15:04:05"),
		r.Duration.Round(time.Millisecond),
		termination,
		r.Produced,
		r.Consumed,
		r.MaxDepth,
		r.FullWaits,
		r.EmptyWaits,
		r.Submitted,
		r.Rejected,
		r.Abandoned,
		r.AverageSession.Round(time.Millisecond),
	)

	for _, st := range r.Stages {
		if st.Status == StageSkipped {
			report += fmt.Sprintf("  %-20s %s\n", st.Name+":", st.Status)
			continue
		}
		report += fmt.Sprintf("  %-20s %-12s (%v)\n", st.Name+":", st.Status, st.Elapsed.Round(time.Millisecond))
	}

	report += "\n================================================================================"

	return report
}
