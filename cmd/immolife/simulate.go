package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MRamiBalles/immolife/internal/engine"
	"github.com/MRamiBalles/immolife/internal/events"
	"github.com/MRamiBalles/immolife/internal/infra/storage"
)

const simulateAutosaveDelay = 24 * time.Hour

func simulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the economy headless for a number of months and print the monthly ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			months, _ := cmd.Flags().GetInt("months")
			buy, _ := cmd.Flags().GetInt("buy")
			resume, _ := cmd.Flags().GetBool("resume")
			slot, _ := cmd.Flags().GetString("save")
			if months <= 0 {
				return fmt.Errorf("--months must be positive, got %d", months)
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			bus := events.NewBus()
			opts := a.engineOptions(bus)
			opts.SkipAutoload = !resume
			// Headless runs persist only through --save.
			opts.AutosaveDelay = simulateAutosaveDelay
			scratch := storage.NewMemorySlotStore()
			if !resume {
				opts.Store = scratch
			}
			eng := engine.New(opts)

			bought := buyCheapest(eng, buy)
			fmt.Printf("Start: %s, cash %s €, bought %d properties\n",
				eng.FormattedDate(), humanize.Comma(eng.Player().Money), bought)

			fmt.Printf("%-16s  %14s  %14s  %14s  %16s\n", "Month", "Income", "Expenses", "Net", "Cash")
			bus.On(events.EventTypeMonthAdvanced, func(e events.Event) {
				m := e.Payload.(events.MonthAdvanced)
				fmt.Printf("%-16s  %14s  %14s  %14s  %16s\n",
					fmt.Sprintf("%02d/%d", m.Month, m.Year),
					humanize.Comma(m.Income), humanize.Comma(m.Expenses), humanize.Comma(m.NetChange),
					humanize.Comma(eng.Player().Money))
			})

			for i := 0; i < months; i++ {
				eng.ForceAdvanceToNextMonth()
			}

			p := eng.Player()
			var value float64
			for _, prop := range p.Properties {
				value += prop.Price
			}
			fmt.Printf("End: %s, cash %s €, portfolio value %s €, %d loans\n",
				eng.FormattedDate(), humanize.Comma(p.Money), humanize.Comma(int64(value)), len(p.Loans))

			if slot != "" {
				if err := eng.SaveGame(cmd.Context(), slot); err != nil {
					return err
				}
				if !resume {
					data, err := scratch.Get(cmd.Context(), slot)
					if err != nil {
						return err
					}
					if err := a.store.Put(cmd.Context(), slot, data); err != nil {
						return fmt.Errorf("failed to write slot %q: %w", slot, err)
					}
				}
				fmt.Printf("Saved to slot %q\n", slot)
			}
			return nil
		},
	}

	cmd.Flags().Int("months", 12, "number of months to simulate")
	cmd.Flags().Int("buy", 3, "buy this many of the cheapest listings before starting")
	cmd.Flags().Bool("resume", false, "continue the autosaved game (the autosave slot is only rewritten by --save autosave)")
	cmd.Flags().String("save", "", "save the final state to this slot")
	return cmd
}

// buyCheapest buys up to n of the cheapest affordable listings and returns how many it bought.
func buyCheapest(eng *engine.Engine, n int) int {
	listings := eng.AvailableProperties()
	sort.Slice(listings, func(i, j int) bool { return listings[i].Price < listings[j].Price })

	bought := 0
	for _, l := range listings {
		if bought >= n {
			break
		}
		if eng.BuyProperty(l.ID) == nil {
			bought++
		}
	}
	return bought
}
