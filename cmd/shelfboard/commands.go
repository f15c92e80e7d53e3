package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/shelfboard/cmd/shelfboard/cli"
	"github.com/odyssey-erp/shelfboard/internal/app"
	"github.com/odyssey-erp/shelfboard/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmdContext(cmd)
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()
		applied, err := migrations.Apply(ctx, rt.pool)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return err
		}
		for _, name := range applied {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name); err != nil {
				return err
			}
		}
		return nil
	},
}

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Inspect stored shelf layouts",
}

var (
	checkShelf  string
	checkRepair bool
	checkJSON   bool
)

var layoutCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report rows whose positions are not numbered 1..N",
	Long: `Scans stored layouts for rows with gaps or duplicate positions.

Exits 10 when broken rows remain, 1 on failure and 0 otherwise.
With --repair broken rows are compacted in place.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmdContext(cmd)
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		service, _ := rt.shelfService(nil)
		code := cli.NewLayoutCheckCLI(service).CheckCommand(ctx, cli.LayoutCheckOptions{
			ShelfCode:  checkShelf,
			Repair:     checkRepair,
			JSONOutput: checkJSON,
			Stdout:     cmd.OutOrStdout(),
			Stderr:     cmd.ErrOrStderr(),
		})
		rt.Close()
		if code != cli.ExitOK {
			os.Exit(code)
		}
		return nil
	},
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage background jobs",
}

var (
	triggerShelf  string
	triggerRepair bool
)

var jobsTriggerCmd = &cobra.Command{
	Use:   "trigger <job>",
	Short: "Enqueue reports:warmup or layout:integrity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}
		jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
		defer jobsCLI.Close()

		info, err := jobsCLI.Trigger(cmdContext(cmd), args[0], triggerShelf, triggerRepair)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
		return err
	},
}

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print default queue counters as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}
		jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
		defer jobsCLI.Close()

		stats, err := jobsCLI.InspectQueue()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func init() {
	layoutCheckCmd.Flags().StringVar(&checkShelf, "shelf", "", "check a single shelf code")
	layoutCheckCmd.Flags().BoolVar(&checkRepair, "repair", false, "compact broken rows")
	layoutCheckCmd.Flags().BoolVar(&checkJSON, "json", false, "print a JSON summary")
	layoutCmd.AddCommand(layoutCheckCmd)

	jobsTriggerCmd.Flags().StringVar(&triggerShelf, "shelf", "", "limit the job to one shelf code")
	jobsTriggerCmd.Flags().BoolVar(&triggerRepair, "repair", false, "compact broken rows (layout:integrity only)")
	jobsCmd.AddCommand(jobsTriggerCmd, jobsStatsCmd)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
