package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe every active shard and print the health report",
	Run: func(cmd *cobra.Command, args []string) {
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := newApp(cmd.Context())
		if err != nil {
			fmt.Printf("Error initializing: %v\n", err)
			return
		}
		defer a.Close()

		a.monitor.Sweep(cmd.Context())
		report := a.monitor.Report()
		summary := a.coordinator.CoordinatorHealth(cmd.Context())

		if asJSON {
			out, err := json.MarshalIndent(map[string]any{
				"coordinator": summary,
				"report":      report,
			}, "", "  ")
			if err != nil {
				fmt.Printf("Error encoding report: %v\n", err)
				return
			}
			fmt.Println(string(out))
			return
		}

		fmt.Printf("Sharding enabled: %t (strategy %s)\n", summary.ShardingEnabled, summary.Strategy)
		fmt.Printf("Healthy shards: %d/%d (%.1f%%)\n", report.HealthyShards, report.TotalShards, report.HealthPercentage)
		for _, id := range a.registry.AllActiveShardIDs() {
			shard := report.Shards[id]
			records := int64(0)
			if shard.Health != nil {
				records = shard.Health.RecordCount
			}
			fmt.Printf("  %-24s %-20s records=%-10d success=%.2f  %s\n",
				id, shard.Recommendation, records, shard.SuccessRate, shard.Recommendation.Advice())
		}
	},
}

func init() {
	healthCmd.Flags().Bool("json", false, "Print the report as JSON")
	rootCmd.AddCommand(healthCmd)
}
