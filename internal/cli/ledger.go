package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/festivo/festivo/internal/config"
	"github.com/festivo/festivo/internal/ledger"
)

var ledgerRecentLimit int

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the agent execution ledger",
}

var ledgerRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recent top-level agent executions",
	Run: func(cmd *cobra.Command, args []string) {
		rec := openRecorderOrExit(loadConfigOrExit())
		defer rec.Close()

		execs, err := rec.RecentExecutions(ledgerRecentLimit)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if len(execs) == 0 {
			fmt.Println("No executions recorded yet.")
			return
		}
		for _, e := range execs {
			fmt.Printf("%s  %-9s %-14s iter=%d in=%d out=%d  %s\n",
				e.StartedAt.Format("2006-01-02 15:04:05"),
				e.Status, e.AgentName, e.Iterations,
				e.InputTokens, e.OutputTokens, e.ID)
		}
	},
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show <execution-id>",
	Short: "Show one execution: iterations, API calls and sub-agent runs",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rec := openRecorderOrExit(loadConfigOrExit())
		defer rec.Close()

		printExecution(rec, args[0], "")
	},
}

func openRecorderOrExit(cfg *config.Config) *ledger.SQLiteRecorder {
	rec, err := ledger.NewSQLiteRecorder(cfg.Paths.LedgerDB)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return rec
}

func printExecution(rec *ledger.SQLiteRecorder, id, indent string) {
	e, err := rec.ExecutionByID(id)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	status := string(e.Status)
	switch e.Status {
	case ledger.StatusCompleted:
		status = color.GreenString(status)
	case ledger.StatusFailed:
		status = color.RedString(status)
	}
	fmt.Printf("%s%s  %s  %s  (%dms)\n", indent, e.ID, e.AgentName, status, e.DurationMS)
	fmt.Printf("%s  model=%s tokens in=%d out=%d cache_write=%d cache_read=%d\n",
		indent, e.Model, e.InputTokens, e.OutputTokens, e.CacheWriteTokens, e.CacheReadTokens)
	if e.ErrorText != "" {
		fmt.Printf("%s  error: %s\n", indent, e.ErrorText)
	}
	if e.FinalText != "" {
		fmt.Printf("%s  final: %s\n", indent, truncate(e.FinalText, 120))
	}

	iters, err := rec.IterationsFor(id)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	calls, _ := rec.APICallsFor(id)
	callsByIter := map[string]int{}
	for _, c := range calls {
		callsByIter[c.IterationID]++
	}
	for _, it := range iters {
		fmt.Printf("%s  #%d tools=%d in=%d out=%d api_calls=%d (%dms)\n",
			indent, it.Number, it.ToolCalls, it.InputTokens, it.OutputTokens,
			callsByIter[it.ID], it.DurationMS)
	}

	children, err := rec.ChildExecutions(id)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	for _, child := range children {
		printExecution(rec, child.ID, indent+"    ")
	}
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

func init() {
	ledgerRecentCmd.Flags().IntVarP(&ledgerRecentLimit, "limit", "n", 20, "Number of executions to list")
	ledgerCmd.AddCommand(ledgerRecentCmd)
	ledgerCmd.AddCommand(ledgerShowCmd)
}
