package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccastromar/mirofish-console/internal/api"
	"github.com/ccastromar/mirofish-console/internal/app"
)

func newReportsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reports",
		Aliases: []string{"report", "r"},
		Short:   "List, view, download and manage reports",
	}
	cmd.AddCommand(
		newListCmd(c),
		newShowCmd(c),
		newDownloadCmd(c),
		newDeleteCmd(c),
		newGenerateCmd(c),
		newStatusCmd(c),
		newLogsCmd(c),
		newChatCmd(c),
		newResumeCmd(c),
	)
	return cmd
}

func newListCmd(c *cli) *cobra.Command {
	var opts api.ListOptions
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List reports, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reports, err := c.app.Client.ListReports(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return c.render(cmd.OutOrStdout(), reports, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "ID\tSIMULATION\tSTATUS\tCREATED\tTITLE")
				for _, r := range reports {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						r.ID, r.SimulationID, statusText(r.Status), formatTime(r.CreatedAt), r.Title())
				}
				if len(reports) == 0 {
					fmt.Fprintln(tw, hintColor.Sprint("no reports"))
				}
			})
		},
	}
	cmd.Flags().StringVarP(&opts.SimulationID, "simulation", "s", "", "Only reports of this simulation")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 50, "Maximum number of reports")
	return withRoute(cmd, "history")
}

func newShowCmd(c *cli) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show <report-id>",
		Short: "Show one report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.app.Client.GetReport(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if raw {
				_, err := fmt.Fprint(out, r.MarkdownContent)
				return err
			}
			return c.render(out, r, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "ID\t%s\n", r.ID)
				fmt.Fprintf(tw, "TITLE\t%s\n", r.Title())
				fmt.Fprintf(tw, "SIMULATION\t%s\n", r.SimulationID)
				fmt.Fprintf(tw, "STATUS\t%s\n", statusText(r.Status))
				fmt.Fprintf(tw, "CREATED\t%s\n", formatTime(r.CreatedAt))
				fmt.Fprintf(tw, "COMPLETED\t%s\n", formatTime(r.CompletedAt))
				if r.Error != "" {
					fmt.Fprintf(tw, "ERROR\t%s\n", r.Error)
				}
				if r.Outline != nil {
					for i, s := range r.Outline.Sections {
						fmt.Fprintf(tw, "SECTION %d\t%s\n", i+1, s.Title)
					}
				}
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print only the markdown body")
	return withRoute(cmd, "report")
}

func newDownloadCmd(c *cli) *cobra.Command {
	var (
		dir         string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "download <report-id>...",
		Short: "Download reports as markdown files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := c.app.DownloadAll(cmd.Context(), dir, args, concurrency)
			out := cmd.OutOrStdout()
			for _, r := range results {
				if r.Err != nil {
					continue
				}
				fmt.Fprintf(out, "%s %s -> %s (%d bytes)\n", okColor.Sprint("✓"), r.ReportID, r.Path, r.Bytes)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Destination directory")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Parallel downloads")
	return withRoute(cmd, "report")
}

func newDeleteCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <report-id>...",
		Aliases: []string{"rm"},
		Short:   "Delete reports",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			for _, id := range args {
				if _, err := c.app.Client.DeleteReport(cmd.Context(), id); err != nil {
					errs = append(errs, fmt.Errorf("%s: %s", id, describe(err)))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s deleted %s\n", okColor.Sprint("✓"), id)
			}
			return errors.Join(errs...)
		},
	}
	return withRoute(cmd, "report")
}

func newGenerateCmd(c *cli) *cobra.Command {
	var (
		force bool
		wait  bool
		every time.Duration
	)
	cmd := &cobra.Command{
		Use:   "generate <simulation-id>",
		Short: "Start report generation for a simulation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := c.app.Client.GenerateReport(ctx, api.GenerateRequest{SimulationID: args[0], ForceRegenerate: force})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.AlreadyGenerated || !wait {
				return c.render(out, res, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "REPORT\t%s\n", res.ReportID)
					fmt.Fprintf(tw, "TASK\t%s\n", res.TaskID)
					fmt.Fprintf(tw, "STATUS\t%s\n", statusText(res.Status))
					if res.AlreadyGenerated {
						fmt.Fprintf(tw, "NOTE\t%s\n", hintColor.Sprint("already generated; use --force to regenerate"))
					}
				})
			}

			st, err := c.app.WaitForTask(ctx, res.TaskID, every, func(st api.TaskStatus) {
				if c.output == formatTable {
					fmt.Fprintf(cmd.ErrOrStderr(), "%3d%% %s\n", st.Progress, st.Message)
				}
			})
			if err != nil {
				return err
			}
			if st.Status == api.StatusFailed {
				return fmt.Errorf("report %s failed: %s (try 'console reports resume %s')", res.ReportID, st.Message, res.ReportID)
			}
			return c.render(out, st, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "REPORT\t%s\n", res.ReportID)
				fmt.Fprintf(tw, "STATUS\t%s\n", statusText(st.Status))
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Regenerate even if a report exists")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait until generation finishes")
	cmd.Flags().DurationVar(&every, "poll", app.DefaultPollInterval, "Status poll interval with --wait")
	return withRoute(cmd, "home")
}

func newStatusCmd(c *cli) *cobra.Command {
	var q api.StatusQuery
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show generation progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if q.TaskID == "" && q.SimulationID == "" {
				return errors.New("one of --task or --simulation is required")
			}
			st, err := c.app.Client.GenerateStatus(cmd.Context(), q)
			if err != nil {
				return err
			}
			return c.render(cmd.OutOrStdout(), st, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "TASK\t%s\n", st.TaskID)
				fmt.Fprintf(tw, "REPORT\t%s\n", st.ReportID)
				fmt.Fprintf(tw, "STATUS\t%s\n", statusText(st.Status))
				fmt.Fprintf(tw, "PROGRESS\t%d%%\n", st.Progress)
				fmt.Fprintf(tw, "MESSAGE\t%s\n", st.Message)
			})
		},
	}
	cmd.Flags().StringVarP(&q.TaskID, "task", "t", "", "Task id")
	cmd.Flags().StringVarP(&q.SimulationID, "simulation", "s", "", "Simulation id (latest task)")
	return withRoute(cmd, "home")
}

func newLogsCmd(c *cli) *cobra.Command {
	var (
		console bool
		follow  bool
		from    int
		every   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "logs <report-id>",
		Short: "Show the agent or console log of a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, id, out := cmd.Context(), args[0], cmd.OutOrStdout()
			if console && follow {
				return c.app.FollowConsole(ctx, id, every, func(line string) { fmt.Fprintln(out, line) })
			}
			if console {
				page, err := c.app.Client.ConsoleLog(ctx, id, from)
				if err != nil {
					return err
				}
				return c.render(out, page, func(tw *tabwriter.Writer) {
					for _, l := range page.Logs {
						fmt.Fprintln(tw, l)
					}
				})
			}
			page, err := c.app.Client.AgentLog(ctx, id, from)
			if err != nil {
				return err
			}
			return c.render(out, page, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "TIME\tACTION\tSTAGE\tSECTION")
				for _, e := range page.Logs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Timestamp, e.Action, e.Stage, e.SectionTitle)
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&console, "console", "c", false, "Show the console log instead of the agent log")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing console lines until the report finishes")
	cmd.Flags().IntVar(&from, "from", 0, "First line to fetch")
	cmd.Flags().DurationVar(&every, "poll", app.DefaultPollInterval, "Poll interval with --follow")
	return withRoute(cmd, "report")
}

func newChatCmd(c *cli) *cobra.Command {
	var simulation string
	cmd := &cobra.Command{
		Use:   "chat <report-id> <message>...",
		Short: "Ask a question about a report",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.Client.Chat(cmd.Context(), api.ChatRequest{
				ReportID:     args[0],
				SimulationID: simulation,
				Message:      strings.Join(args[1:], " "),
			})
			if err != nil {
				return err
			}
			return c.render(cmd.OutOrStdout(), res, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, res.Response)
			})
		},
	}
	cmd.Flags().StringVarP(&simulation, "simulation", "s", "", "Simulation id")
	return withRoute(cmd, "report")
}

func newResumeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume <report-id>",
		Short: "Restart a failed report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.Client.ResumeReport(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.render(cmd.OutOrStdout(), res, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "REPORT\t%s\n", res.ReportID)
				fmt.Fprintf(tw, "TASK\t%s\n", res.TaskID)
				fmt.Fprintf(tw, "STATUS\t%s\n", statusText(res.Status))
			})
		},
	}
	return withRoute(cmd, "report")
}
