package commands

import (
	"fmt"
	"log"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ignite/leadharvest/internal/config"
	"github.com/ignite/leadharvest/internal/domain"
	"github.com/ignite/leadharvest/internal/service/outreach"
)

var (
	sendLimit  int
	sendDryRun bool
)

func init() {
	for _, c := range []*cobra.Command{sendCmd, remindCmd} {
		c.Flags().IntVar(&sendLimit, "limit", 0, "Candidates to consider. Defaults to outreach.daily_cap.")
		c.Flags().BoolVar(&sendDryRun, "dry-run", false, "Render and count messages without sending.")
		rootCmd.AddCommand(c)
	}
}

func sendLimitOrCap(limit int, cfg *config.Config) int {
	if limit > 0 {
		return limit
	}
	return cfg.Outreach.DailyCap
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Messages stored candidates that were never contacted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := configFrom(cmd)
		tpl, err := cfg.Outreach.LoadTemplate()
		if err != nil {
			return err
		}
		if strings.TrimSpace(tpl) == "" {
			return outreach.ErrNoTemplate
		}

		a := newApp(cmd)
		defer a.Close()
		if err := a.openStore(ctx); err != nil {
			return err
		}
		if err := a.connect(ctx); err != nil {
			return err
		}
		svc, err := a.sender(sendDryRun)
		if err != nil {
			return err
		}
		if err := svc.Templates().Parse(tpl); err != nil {
			return err
		}

		candidates, err := a.candidates.ListUncontacted(ctx, sendLimitOrCap(sendLimit, cfg))
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			fmt.Println("Nobody left to contact.")
			return nil
		}

		ids := make([]int64, len(candidates))
		for i := range candidates {
			ids[i] = candidates[i].ID
		}
		open, err := svc.CheckMessageAvailability(ctx, ids)
		if err != nil {
			return err
		}
		for i := range candidates {
			candidates[i].CanMessage = open[candidates[i].ID]
		}

		stats := svc.SendBatch(ctx, candidates, tpl, cfg.Outreach.Attachments)
		printSendStats(stats)
		return nil
	},
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Sends the reminder template to candidates contacted more than three days ago.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := configFrom(cmd)
		tpl := cfg.Outreach.ReminderTemplate
		if strings.TrimSpace(tpl) == "" {
			return outreach.ErrNoTemplate
		}

		a := newApp(cmd)
		defer a.Close()
		if err := a.openStore(ctx); err != nil {
			return err
		}
		if err := a.connect(ctx); err != nil {
			return err
		}
		svc, err := a.sender(sendDryRun)
		if err != nil {
			return err
		}

		due, err := a.candidates.ListReminderDue(ctx, sendLimitOrCap(sendLimit, cfg))
		if err != nil {
			return err
		}
		if len(due) == 0 {
			fmt.Println("No reminders due.")
			return nil
		}
		// Everyone here already accepted a message once.
		for i := range due {
			due[i].CanMessage = true
		}
		log.Printf("[Outreach] %d reminders due", len(due))
		printSendStats(svc.SendReminders(ctx, due, tpl))
		return nil
	},
}

func printSendStats(stats domain.SendStats) {
	t := newTable()
	t.SetTitle("Batch " + stats.BatchID)
	t.AppendHeader(table.Row{"Total", "Sent", "Failed", "Skipped"})
	t.AppendRow(table.Row{stats.Total, stats.Sent, stats.Failed, stats.Skipped})
	t.Render()

	if len(stats.Errors) > 0 {
		e := newTable()
		e.SetTitle("Errors")
		e.AppendHeader(table.Row{"User", "Error"})
		for _, se := range stats.Errors {
			e.AppendRow(table.Row{se.CandidateID, se.Error})
		}
		e.Render()
	}
}
