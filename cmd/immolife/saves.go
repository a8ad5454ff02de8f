package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/immolife/internal/engine"
	"github.com/MRamiBalles/immolife/internal/events"
)

func savesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saves",
		Short: "Inspect and manage save slots",
	}
	cmd.AddCommand(savesListCmd(), savesDeleteCmd())
	return cmd
}

// offlineEngine opens an engine over the configured store without resuming the autosave.
func offlineEngine(cmd *cobra.Command) (*engine.Engine, *app, error) {
	a, err := openApp(cmd)
	if err != nil {
		return nil, nil, err
	}
	opts := a.engineOptions(events.NewBus())
	opts.SkipAutoload = true
	return engine.New(opts), a, nil
}

func savesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List save slots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, a, err := offlineEngine(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			slots, err := eng.GetSaveSlots(cmd.Context())
			if err != nil {
				return err
			}
			if len(slots) == 0 {
				fmt.Println("No saves found")
				return nil
			}
			fmt.Printf("%-32s  %-22s\n", "Slot", "Saved")
			for _, s := range slots {
				fmt.Printf("%-32s  %-22s\n", s.Name, s.FormattedDate)
			}
			return nil
		},
	}
}

func savesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete SLOT",
		Short: "Delete a save slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, a, err := offlineEngine(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if err := eng.DeleteSave(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %q\n", args[0])
			return nil
		},
	}
}
