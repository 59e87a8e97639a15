package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and cache status",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.apiClient()
			if err != nil {
				return err
			}

			status, err := api.Status(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := api.CacheStats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			fmt.Fprintln(out, renderSectionHeader("Daemon", colorize))
			fmt.Fprintf(out, "  Running:      %s (pid %d)\n", yesNo(status.Running), status.PID)
			fmt.Fprintf(out, "  Job database: %s\n", status.JobDBPath)
			fmt.Fprintf(out, "  Lock file:    %s\n", status.LockFilePath)

			fmt.Fprintln(out)
			fmt.Fprintln(out, renderSectionHeader("Cache", colorize))
			fmt.Fprintf(out, "  Root:         %s\n", stats.CacheRoot)
			fmt.Fprintf(out, "  Used:         %s\n", formatBytes(stats.CacheDirBytes))
			fmt.Fprintf(out, "  Free:         %s\n", formatBytes(stats.FreeBytes))
			fmt.Fprintf(out, "  Reusable:     %d bundle(s)\n", stats.ReusableJobs)

			if len(stats.JobsByStatus) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderSectionHeader("Jobs", colorize))
				names := make([]string, 0, len(stats.JobsByStatus))
				for name := range stats.JobsByStatus {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(out, "  %-12s %d\n", name+":", stats.JobsByStatus[name])
				}
			}
			return nil
		},
	}
}
