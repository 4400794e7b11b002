package commands

import (
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ignite/leadharvest/internal/service/candidate"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints a breakdown of the stored audience.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := newApp(cmd)
		defer a.Close()
		if err := a.openStore(ctx); err != nil {
			return err
		}

		counts, err := a.candidates.Counts(ctx)
		if err != nil {
			return err
		}
		cs, err := a.candidates.All(ctx)
		if err != nil {
			return err
		}
		printSummary(counts, candidate.Summarize(cs, time.Now()))
		return nil
	},
}

func printSummary(counts candidate.StoreCounts, s candidate.Summary) {
	overview := newTable()
	overview.SetTitle("Audience")
	overview.AppendRows([]table.Row{
		{"Stored", counts.Total},
		{"Contacted", counts.Contacted},
		{"Reminded", counts.Reminded},
		{"Accept messages", s.CanMessage},
		{"Online now", s.OnlineNow},
		{"Mobile app", s.HasMobile},
	})
	overview.Render()

	activity := newTable()
	activity.SetTitle("Last seen")
	activity.AppendHeader(table.Row{"Today", "This week", "This month", "Older"})
	activity.AppendRow(table.Row{s.Activity.Today, s.Activity.Week, s.Activity.Month, s.Activity.Older})
	activity.Render()

	sexes := make([]string, 0, len(s.Sex))
	for k := range s.Sex {
		sexes = append(sexes, k)
	}
	sort.Strings(sexes)
	sex := newTable()
	sex.SetTitle("Sex")
	for _, k := range sexes {
		sex.AppendRow(table.Row{k, s.Sex[k]})
	}
	sex.Render()

	cities := newTable()
	cities.SetTitle("Top cities")
	cities.AppendHeader(table.Row{"City", "Candidates"})
	for _, c := range s.TopCities {
		cities.AppendRow(table.Row{c.City, c.Count})
	}
	cities.Render()
}
