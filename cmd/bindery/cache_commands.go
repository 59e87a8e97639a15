package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Download cache administration",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache usage and job counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := ctx.apiClient()
			if err != nil {
				return err
			}
			stats, err := apiClient.CacheStats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"Cache root", stats.CacheRoot},
				{"Used", formatBytes(stats.CacheDirBytes)},
				{"Free", formatBytes(stats.FreeBytes)},
				{"Reusable bundles", fmt.Sprintf("%d", stats.ReusableJobs)},
			}
			names := make([]string, 0, len(stats.JobsByStatus))
			for name := range stats.JobsByStatus {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				rows = append(rows, []string{"Jobs " + name, fmt.Sprintf("%d", stats.JobsByStatus[name])})
			}
			fmt.Fprintln(out, renderTable([]string{"METRIC", "VALUE"}, rows, 2))
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Expire all cached bundles and sweep the cache root",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("cache clear deletes every cached bundle; re-run with --yes to confirm")
			}
			apiClient, err := ctx.apiClient()
			if err != nil {
				return err
			}
			result, err := apiClient.ClearCache(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached bundle(s)\n", result.Cleared)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}
