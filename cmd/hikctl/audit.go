package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/technosupport/secops/internal/audit"
)

var (
	auditLimit  int
	auditAction string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Read the audit log",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent audit events of the tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		tid, err := tenantID()
		if err != nil {
			return err
		}
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		evts, err := e.audit.QueryEvents(ctx, audit.Filter{TenantID: tid, Action: auditAction, Limit: auditLimit})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(evts)
		}
		if len(evts) == 0 {
			fmt.Println("No audit events.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "TIME\tACTION\tTARGET\tRESULT\tACTOR")
		fmt.Fprintln(w, "----\t------\t------\t------\t-----")
		for _, ev := range evts {
			actor := "-"
			if ev.ActorUserID != nil {
				actor = ev.ActorUserID.String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s:%s\t%s\t%s\n",
				ev.CreatedAt.Format("2006-01-02 15:04:05"),
				ev.Action,
				ev.TargetType, ev.TargetID,
				ev.Result,
				actor,
			)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd)
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 50, "Maximum events to show")
	auditListCmd.Flags().StringVar(&auditAction, "action", "", "Only this action, e.g. camera.create")
}
