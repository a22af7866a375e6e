package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zzenonn/talentshard/internal/domain"
)

var placeCmd = &cobra.Command{
	Use:   "place [profile.json]",
	Short: "Show which shard a profile belongs to, optionally writing it there",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		write, _ := cmd.Flags().GetBool("write")

		data, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Printf("Error reading profile: %v\n", err)
			return
		}

		var record domain.ProfileRecord
		if err := json.Unmarshal(data, &record); err != nil {
			fmt.Printf("Error parsing profile: %v\n", err)
			return
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			fmt.Printf("Error initializing: %v\n", err)
			return
		}
		defer a.Close()

		// Refresh the load signal of the geographic shard before deciding.
		geographic := a.registry.ResolveByLocation(record.Country, record.Region, record.Locality)
		a.monitor.IsHealthy(cmd.Context(), geographic)

		shardID := a.coordinator.DetermineProfileShard(record)
		fmt.Printf("Profile %s -> %s\n", record.ID, shardID)

		if !write {
			return
		}

		record.UpdatedAt = time.Now().UTC()
		if err := a.store.PutProfile(cmd.Context(), shardID, record); err != nil {
			fmt.Printf("Error writing profile: %v\n", err)
			return
		}
		fmt.Printf("Profile %s written to %s\n", record.ID, shardID)
	},
}

func init() {
	placeCmd.Flags().BoolP("write", "w", false, "Write the profile to the chosen shard")
	rootCmd.AddCommand(placeCmd)
}
