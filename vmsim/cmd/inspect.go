package cmd

import (
	"fmt"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/pageloader"
	"github.com/spf13/cobra"
)

func newInspectCommand() *cobra.Command {
	var showAll bool

	inspectCmd := &cobra.Command{
		Use:   "inspect <path>",
		Short: "Print the header and slot map of a swap file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			numPages, err := pageloader.ReadPageCount(path)
			if err != nil {
				return err
			}

			swap, err := pageloader.OpenSwapFile(path, numPages)
			if err != nil {
				return err
			}
			defer swap.Close()

			numSlots, err := swap.NumSlots()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Swap file:   %s\n", path)
			fmt.Fprintf(out, "Pages:       %d\n", swap.NumPages())
			fmt.Fprintf(out, "Page size:   %d\n", swap.PageSize())
			fmt.Fprintf(out, "Header size: %d\n", pageloader.HeaderSize(numPages))
			fmt.Fprintf(out, "Slots:       %d\n", numSlots)

			for p := 0; p < numPages; p++ {
				index := swap.SlotIndex(vm.PageNumber(p))

				switch {
				case index != 0:
					fmt.Fprintf(out, "  page 0x%04X -> slot %d\n", p, index-1)
				case showAll:
					fmt.Fprintf(out, "  page 0x%04X -> none\n", p)
				}
			}

			return nil
		},
	}

	inspectCmd.Flags().BoolVar(&showAll, "all", false,
		"Also list pages that have never been written.")

	return inspectCmd
}
