package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"arena-panel-go/internal/config"
	"arena-panel-go/internal/logger"
	"arena-panel-go/internal/panelapi"
)

// snapshot prints a one-shot terminal view of the bot's telemetry:
// summary metrics, observability and the arena ranking.
func main() {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	client := panelapi.NewClient(&cfg.Panel, log)
	ctx := context.Background()

	summary, err := client.DashboardSummary(ctx)
	if err != nil {
		log.Fatal("Failed to fetch dashboard summary", zap.Error(err))
	}
	observability, err := client.ObservabilitySummary(ctx)
	if err != nil {
		log.Fatal("Failed to fetch observability summary", zap.Error(err))
	}
	ranking, err := client.ArenaRanking(ctx)
	if err != nil {
		log.Fatal("Failed to fetch arena ranking", zap.Error(err))
	}

	fmt.Printf("%s [%s] updated %s\n\n", summary.Summary, summary.Level, summary.UpdatedAt)

	printMetrics(summary.Metrics)
	printObservability(observability)
	printRanking(ranking.Ranking)
	printIssues(summary.Issues)
}

func printMetrics(metrics []panelapi.SummaryMetric) {
	if len(metrics) == 0 {
		fmt.Println("No metrics reported.")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value", "Delta"})
	for _, m := range metrics {
		value := m.Formatted
		if value == "" && m.Value != nil {
			value = strconv.FormatFloat(*m.Value, 'f', 2, 64)
		}
		table.Append([]string{m.Name, value, m.DeltaFormatted})
	}
	table.Render()
}

func printObservability(o *panelapi.ObservabilitySummary) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Goal", "Wins", "Ticks since win", "Drawdown %", "Decisions/min"})
	table.Append([]string{
		formatFloat(o.Arena.CurrentGoal, 2),
		formatInt(o.Arena.Wins),
		formatInt(o.Arena.TicksSinceWin),
		formatFloat(o.Bot.DrawdownPct, 2),
		formatFloat(o.Cerebro.DecisionsPerMin, 2),
	})
	table.Render()
}

func printRanking(rows []panelapi.RankingRow) {
	if len(rows) == 0 {
		fmt.Println("No arena data yet.")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Strategy", "Category", "Mode", "Balance", "Goal", "Score"})
	for i, row := range rows {
		table.Append([]string{
			strconv.Itoa(i + 1),
			row.Name,
			row.Category,
			row.Mode,
			formatFloat(row.Balance, 2),
			formatFloat(row.Goal, 2),
			strconv.FormatFloat(row.Score, 'f', 3, 64),
		})
	}
	table.Render()
}

func printIssues(issues []panelapi.SummaryIssue) {
	if len(issues) == 0 {
		fmt.Println("No issues reported.")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Severity", "Message"})
	for _, issue := range issues {
		table.Append([]string{issue.Severity, issue.Message})
	}
	table.Render()
}

func formatFloat(v *float64, prec int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
