package cmd

import (
	"fmt"
	"os"

	"github.com/sarchlab/vmsim/mem/vm/pageloader"
	"github.com/spf13/cobra"
)

func newMkswapCommand() *cobra.Command {
	var (
		numPages int
		pageSize uint64
		force    bool
	)

	mkswapCmd := &cobra.Command{
		Use:   "mkswap <path>",
		Short: "Create an empty swap file.",
		Long: "`mkswap <path>` writes a swap file whose header says no page " +
			"has been written yet, so every page reads as zeros.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			if numPages < 1 {
				return fmt.Errorf("at least one page is required, got %d",
					numPages)
			}

			_, err := os.Stat(path)
			if err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to "+
					"replace it", path)
			}

			err = pageloader.CreateSwapFile(path, numPages, pageSize)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"Created %s: %d pages of %d bytes, %d-byte header\n",
				path, numPages, pageSize, pageloader.HeaderSize(numPages))

			return nil
		},
	}

	mkswapCmd.Flags().IntVar(&numPages, "pages", 256,
		"Number of virtual pages.")
	mkswapCmd.Flags().Uint64Var(&pageSize, "page-size", 256,
		"Bytes per page.")
	mkswapCmd.Flags().BoolVar(&force, "force", false,
		"Replace an existing file.")

	return mkswapCmd
}
