package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func printGraph(g domain.Graph) {
	rows := make([][]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		rows = append(rows, []string{
			n.PropertyID.String(),
			n.Name,
			string(n.ObjectType),
			string(n.PropertyType),
			string(n.Role),
			strconv.Itoa(n.Depth),
		})
	}
	printTable([]string{"ID", "NAME", "OBJECT", "TYPE", "ROLE", "DEPTH"}, rows)
	fmt.Printf("\n%d nodes, %d edges, max depth %d, %.0f%% critical edges\n",
		g.Metrics.NodeCount, g.Metrics.EdgeCount, g.Metrics.MaxDepth, g.Metrics.CriticalEdgePercent)
}

func printCycles(cycles []domain.Cycle) {
	if len(cycles) == 0 {
		fmt.Println("no cycles")
		return
	}
	for i, c := range cycles {
		parts := make([]string, 0, len(c.Path)+1)
		for _, id := range c.Path {
			parts = append(parts, id.String())
		}
		parts = append(parts, c.Path[0].String())
		fmt.Printf("%d: %s\n", i+1, strings.Join(parts, " -> "))
	}
}

func printImpact(imp domain.Impact) {
	printKV([][2]string{
		{"property", imp.PropertyID.String()},
		{"modification", string(imp.ModificationType)},
		{"affected properties", strconv.Itoa(imp.AffectedPropertiesCount)},
		{"critical dependents", strconv.Itoa(imp.CriticalDependentCount)},
		{"records with values", strconv.FormatInt(imp.RecordCount, 10)},
		{"external usage", strconv.Itoa(imp.UsageCount)},
		{"risk", fmt.Sprintf("%s (%d)", imp.RiskLevel, imp.RiskScore)},
		{"can proceed", strconv.FormatBool(imp.CanProceed)},
		{"requires approval", strconv.FormatBool(imp.RequiresApproval)},
	})
	for _, rec := range imp.Recommendations {
		fmt.Printf("[%s] %s\n", rec.Severity, rec.Message)
	}
}

func printCascadeResult(result domain.CascadeResult) {
	fmt.Printf("strategy %s\n", result.Strategy)
	if result.Strategy == domain.StrategyCancel && result.Impact != nil {
		printImpact(*result.Impact)
		return
	}
	fmt.Printf("processed %d properties\n", len(result.ProcessedOrder))
	if result.RepointedEdges > 0 {
		fmt.Printf("repointed %d edges\n", result.RepointedEdges)
	}
	if result.DeactivatedEdges > 0 {
		fmt.Printf("deactivated %d edges\n", result.DeactivatedEdges)
	}
	if result.MigratedRecords > 0 {
		fmt.Printf("migrated %d record values\n", result.MigratedRecords)
	}
	for _, step := range result.Steps {
		status := "ok"
		if !step.OK {
			status = "failed: " + step.Err
		} else if step.Err != "" {
			status = step.Err
		}
		fmt.Printf("step %s: %s\n", step.Name, status)
	}
	for _, e := range result.Errors {
		fmt.Printf("skipped: %s\n", e)
	}
	if result.Warning != "" {
		fmt.Printf("warning: %s\n", result.Warning)
	}
}

func printAudits(audits []domain.ChangeAudit) {
	rows := make([][]string, 0, len(audits))
	for _, a := range audits {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(a.ID), 10),
			string(a.ChangeType),
			string(a.RiskLevel),
			a.Actor.String(),
			a.CreatedAt.Format("2006-01-02 15:04:05"),
			a.Reason,
		})
	}
	printTable([]string{"ID", "CHANGE", "RISK", "ACTOR", "AT", "REASON"}, rows)
}

func printSweepReport(report domain.SweepReport) {
	fmt.Printf("processed %d, archived %d, failed %d\n", report.Processed, report.Archived, report.Failed)
	for _, tr := range report.Tenants {
		fmt.Printf("tenant %s: archived %d, failed %d\n", tr.TenantID, tr.Archived, tr.Failed)
	}
	for _, e := range report.Errors {
		fmt.Printf("error: %s\n", e)
	}
}
