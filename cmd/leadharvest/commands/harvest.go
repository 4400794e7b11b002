package commands

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ignite/leadharvest/internal/config"
	"github.com/ignite/leadharvest/internal/service/harvest"
)

var (
	harvestLimit int
	nicheRotate  bool
	nicheReset   bool
)

func init() {
	harvestCmd.PersistentFlags().IntVar(&harvestLimit, "limit", 0, "Maximum candidates to collect. Defaults to harvest.max_candidates.")
	nicheCmd.Flags().BoolVar(&nicheRotate, "rotate", false, "Take the next niche from harvest.niches and advance the rotation.")
	nicheCmd.Flags().BoolVar(&nicheReset, "reset", false, "Restart the niche rotation from the first niche.")

	harvestCmd.AddCommand(groupCmd)
	harvestCmd.AddCommand(nicheCmd)
	rootCmd.AddCommand(harvestCmd)
}

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Collects group members that match the configured filters.",
}

// budget is the --limit flag when given, else harvest.max_candidates.
func budget(limit int, cfg *config.Config) int {
	if limit > 0 {
		return limit
	}
	return cfg.Harvest.MaxCandidates
}

var groupCmd = &cobra.Command{
	Use:   "group <id|screen_name>",
	Short: "Harvests one group into the store and a spreadsheet.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := newApp(cmd)
		defer a.Close()
		if err := a.openStore(ctx); err != nil {
			return err
		}
		if err := a.connect(ctx); err != nil {
			return err
		}

		ref := args[0]
		if _, err := a.pacer.Wait(ctx); err != nil {
			return err
		}
		g, err := a.client.Group(ctx, ref)
		if err != nil {
			return fmt.Errorf("look up group %s: %w", ref, err)
		}
		log.Printf("[Harvest] group %q (id %d, %d members)", g.Name, g.ID, g.MembersCount)

		skip := &harvest.SkipToken{}
		watchSkip(ctx, skip, os.Stdin)

		svc := a.harvester()
		members, fetchErr := svc.FetchMembers(ctx, ref, budget(harvestLimit, a.cfg), a.cfg.Filters.Criteria(), skip)
		if len(members) > 0 {
			n, err := a.candidates.Persist(ctx, members)
			if err != nil {
				return err
			}
			path, err := a.exportDir().ExportGroup("", g.ID, members)
			if err != nil {
				log.Printf("[Harvest] export failed: %v", err)
			}
			fmt.Printf("Collected %d candidates, %d new. Spreadsheet: %s\n", len(members), n, path)
		} else {
			fmt.Println("No matching candidates found.")
		}
		return fetchErr
	},
}

var nicheCmd = &cobra.Command{
	Use:   "niche [niche]",
	Short: "Finds active groups for a niche and harvests them.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := configFrom(cmd)

		rotation := harvest.NewRotation(cfg.Harvest.NicheStateFile, cfg.Harvest.Niches)
		if nicheReset {
			if err := rotation.Reset(); err != nil {
				return err
			}
			log.Println("[Harvest] niche rotation reset")
			if !nicheRotate && len(args) == 0 {
				return nil
			}
		}

		niche, index := "", -1
		switch {
		case len(args) == 1:
			niche = args[0]
		case nicheRotate:
			n, idx, err := rotation.Next()
			if errors.Is(err, harvest.ErrRotationDone) {
				log.Println("[Harvest] all niches processed")
				return nil
			}
			if err != nil {
				return err
			}
			niche, index = n, idx
		default:
			return fmt.Errorf("give a niche or use --rotate")
		}

		a := newApp(cmd)
		defer a.Close()
		if err := a.openStore(ctx); err != nil {
			return err
		}
		if err := a.connect(ctx); err != nil {
			return err
		}

		skip := &harvest.SkipToken{}
		watchSkip(ctx, skip, os.Stdin)

		res, err := a.harvester().HarvestNiche(ctx, niche, budget(harvestLimit, cfg), cfg.Filters.Criteria(), skip)
		if res != nil {
			printNicheResult(res)
		}
		if err != nil && !errors.Is(err, harvest.ErrNoGroups) {
			return err
		}
		if errors.Is(err, harvest.ErrNoGroups) {
			log.Printf("[Harvest] no groups found for %q", niche)
		}
		if index >= 0 {
			if err := rotation.Advance(index); err != nil {
				return err
			}
		}
		return nil
	},
}

func printNicheResult(res *harvest.NicheResult) {
	t := newTable()
	t.SetTitle(fmt.Sprintf("Niche %q (run %s)", res.Niche, res.RunID))
	t.AppendHeader(table.Row{"Group", "ID", "Fetched", "New", "Spreadsheet", "Error"})
	for _, g := range res.Groups {
		errText := ""
		if g.Err != nil {
			errText = g.Err.Error()
		}
		t.AppendRow(table.Row{g.Group.Name, g.Group.ID, g.Fetched, g.Inserted, g.Export, errText})
	}
	t.AppendFooter(table.Row{"Total", "", len(res.Candidates), "", res.Overall, ""})
	t.Render()
	fmt.Printf("Groups found: %d, active: %d\n", res.GroupsFound, res.GroupsActive)
}
