package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MRamiBalles/immolife/internal/events"
	"github.com/MRamiBalles/immolife/internal/infra/storage"
	"github.com/MRamiBalles/immolife/internal/network"
)

func journalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Print the persisted event journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			typ, _ := cmd.Flags().GetString("type")
			ledger, _ := cmd.Flags().GetBool("ledger")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if a.events == nil {
				return errors.New("the " + a.cfg.Storage.Driver + " storage driver keeps no journal")
			}

			if ledger {
				return printLedger(cmd, a)
			}

			var recs []events.Record
			if typ != "" {
				recs, err = a.events.ByType(cmd.Context(), events.EventType(typ), limit)
			} else {
				recs, err = a.events.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			fmt.Printf("%-8s  %-14s  %-20s  %s\n", "Day", "When", "Type", "Summary")
			for _, r := range recs {
				summary, _ := network.Summarize(r)
				fmt.Printf("%-8d  %-14s  %-20s  %s\n", r.GameDay, humanize.Time(r.Timestamp), r.Type, summary)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 50, "number of newest records to show (0 for all)")
	cmd.Flags().String("type", "", "only show this event type")
	cmd.Flags().Bool("ledger", false, "rebuild the financial history of the current game instead")
	return cmd
}

func printLedger(cmd *cobra.Command, a *app) error {
	h, err := storage.NewReconstructor(a.events).Rebuild(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("%-10s  %14s  %14s  %14s\n", "Month", "Income", "Expenses", "Net")
	for _, m := range h.Months {
		fmt.Printf("%-10s  %14s  %14s  %14s\n", fmt.Sprintf("%02d/%d", m.Month, m.Year),
			humanize.Comma(m.Income), humanize.Comma(m.Expenses), humanize.Comma(m.NetChange))
	}
	fmt.Printf("\nBought %d for %s €, sold %d for %s €\n",
		h.Purchases, humanize.Comma(h.PurchaseSpend), h.Sales, humanize.Comma(h.SaleProceeds))
	fmt.Printf("Rented %d, renovated %d for %s €, %d loans totalling %s €\n",
		h.Rentals, h.Renovations, humanize.Comma(h.RenovationSpend), h.Loans, humanize.Comma(h.Borrowed))
	fmt.Printf("Net operating result: %s €\n", humanize.Comma(h.NetOperating()))
	return nil
}
