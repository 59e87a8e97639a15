package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bindery/internal/api"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List download jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := ctx.apiClient()
			if err != nil {
				return err
			}

			list, err := apiClient.ListDownloads(cmd.Context(), statusFilters...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No download jobs")
				return nil
			}

			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(list))
			for _, job := range list {
				rows = append(rows, []string{
					shortID(job.ID),
					job.UserID,
					renderStatus(job.Status, colorize),
					progressOf(job),
					formatBytes(job.TotalSizeBytes),
					fmt.Sprintf("%d", job.PartCount),
					formatRelative(job.ExpiresAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "USER", "STATUS", "FILES", "SIZE", "PARTS", "EXPIRES"},
				rows,
				4, 5, 6,
			))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statusFilters, "status", nil, "Filter by status (repeatable)")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one download job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := ctx.apiClient()
			if err != nil {
				return err
			}

			job, err := apiClient.GetDownload(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			fmt.Fprintln(out, renderSectionHeader("Job "+job.ID, colorize))
			fmt.Fprintf(out, "  User:       %s\n", job.UserID)
			fmt.Fprintf(out, "  Kind:       %s\n", job.Kind)
			fmt.Fprintf(out, "  Status:     %s\n", renderStatus(job.Status, colorize))
			fmt.Fprintf(out, "  Files:      %s\n", progressOf(*job))
			fmt.Fprintf(out, "  Size:       %s\n", formatBytes(job.TotalSizeBytes))
			fmt.Fprintf(out, "  Output:     %s\n", job.OutputFileName)
			fmt.Fprintf(out, "  Split:      %s\n", yesNo(job.SplitEnabled))
			fmt.Fprintf(out, "  Created:    %s\n", formatTime(&job.CreatedAt))
			fmt.Fprintf(out, "  Started:    %s\n", formatTime(job.StartedAt))
			fmt.Fprintf(out, "  Completed:  %s\n", formatTime(job.CompletedAt))
			fmt.Fprintf(out, "  Expires:    %s\n", formatTime(job.ExpiresAt))
			if job.ErrorMessage != "" {
				fmt.Fprintf(out, "  Error:      %s\n", job.ErrorMessage)
			}

			if len(job.PartNames) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderSectionHeader("Parts", colorize))
				for i, name := range job.PartNames {
					fmt.Fprintf(out, "  %2d  %s\n", i+1, name)
				}
			}
			if len(job.SkippedFiles) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderSectionHeader("Skipped files", colorize))
				for _, skip := range job.SkippedFiles {
					fmt.Fprintf(out, "  %s (%s)\n", skip.Name, skip.Reason)
				}
			}
			return nil
		},
	}
}

func newRequestCommand(ctx *commandContext) *cobra.Command {
	var (
		userID    string
		kind      string
		scopeID   string
		split     bool
		splitSize string
	)

	cmd := &cobra.Command{
		Use:   "request <file-id>...",
		Short: "Request a download bundle for the given file IDs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := ctx.apiClient()
			if err != nil {
				return err
			}

			var splitBytes int64
			if trimmed := strings.TrimSpace(splitSize); trimmed != "" {
				parsed, err := parseByteSize(trimmed)
				if err != nil {
					return fmt.Errorf("parse --split-size: %w", err)
				}
				splitBytes = parsed
				split = true
			}

			result, err := apiClient.CreateDownload(cmd.Context(), api.CreateDownloadRequest{
				UserID:         userID,
				Kind:           kind,
				FileIDs:        args,
				ScopeID:        scopeID,
				SplitEnabled:   split,
				SplitSizeBytes: splitBytes,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Cached {
				fmt.Fprintf(out, "Bundle already cached: job %s (%s, %d files)\n",
					result.JobID, formatBytes(result.EstimatedSizeBytes), result.FileCount)
				return nil
			}
			fmt.Fprintf(out, "Job %s accepted: %d files, about %s\n",
				result.JobID, result.FileCount, formatBytes(result.EstimatedSizeBytes))
			if result.NeedsConfirmation {
				fmt.Fprintln(out, "Note: this is a large request; the server flagged it for confirmation")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "Requesting user ID")
	cmd.Flags().StringVar(&kind, "kind", "", "Request kind (single-file, series, ad-hoc-selection)")
	cmd.Flags().StringVar(&scopeID, "scope", "", "Series or file ID used for bundle naming")
	cmd.Flags().BoolVar(&split, "split", false, "Split the bundle into size-bounded parts")
	cmd.Flags().StringVar(&splitSize, "split-size", "", "Part size cap (e.g. 500MiB, 2GiB); implies --split")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a download job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := ctx.apiClient()
			if err != nil {
				return err
			}
			jobID := strings.TrimSpace(args[0])
			if err := apiClient.CancelDownload(cmd.Context(), jobID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s cancelled\n", jobID)
			return nil
		},
	}
}
