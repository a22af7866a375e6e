package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zzenonn/talentshard/internal/domain"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search profiles across all healthy shards",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		threshold, _ := cmd.Flags().GetFloat64("threshold")

		a, err := newApp(cmd.Context())
		if err != nil {
			fmt.Printf("Error initializing: %v\n", err)
			return
		}
		defer a.Close()

		result := a.coordinator.CoordinateSearch(cmd.Context(), domain.SearchRequest{
			Query:     strings.Join(args, " "),
			Limit:     limit,
			Threshold: threshold,
		})

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Printf("Error encoding result: %v\n", err)
			return
		}
		fmt.Println(string(out))
	},
}

func init() {
	searchCmd.Flags().IntP("limit", "n", 10, "Maximum number of profiles to return")
	searchCmd.Flags().Float64P("threshold", "t", 0.7, "Minimum similarity score")
	rootCmd.AddCommand(searchCmd)
}
