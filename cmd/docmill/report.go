package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"docmill/internal/queue"
)

// renderReport builds the end-of-batch summary table plus a one-line total.
func renderReport(items []queue.Item, stats queue.StatsSnapshot) string {
	headers := []string{"Document", "Status", "Retries", "Duration", "Result"}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			filepath.Base(item.SourcePath),
			string(item.Status),
			strconv.Itoa(item.RetryCount),
			itemDuration(item),
			itemResult(item),
		})
	}

	var b strings.Builder
	b.WriteString(renderTable(headers, rows, 2, 3))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d admitted, %d completed, %d failed, %d cancelled, %d retries",
		stats.Admitted, stats.Completed, stats.Failed, stats.Cancelled, stats.Retries)
	return b.String()
}

func itemDuration(item queue.Item) string {
	if item.StartedAt.IsZero() || item.FinishedAt.IsZero() {
		return "-"
	}
	return item.FinishedAt.Sub(item.StartedAt).Round(10 * time.Millisecond).String()
}

func itemResult(item queue.Item) string {
	switch item.Status {
	case queue.StatusCompleted:
		return item.OutputPath
	case queue.StatusFailed:
		return item.LastError
	default:
		return ""
	}
}
