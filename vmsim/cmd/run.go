package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pkg/browser"
	"github.com/sarchlab/vmsim/console"
	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/mem/trace"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/mem/vm/pageloader"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"github.com/sarchlab/vmsim/monitoring"
	"github.com/spf13/cobra"
)

type runConfig struct {
	swapPath     string
	input        string
	loader       string
	policy       string
	addressWidth uint64
	log2PageSize uint64
	memSize      uint64
	frames       int
	trace        bool
	record       string
	monitor      bool
	monitorPort  int
	openBrowser  bool
	stats        bool
	flushOnExit  bool
}

func newRunCommand() *cobra.Command {
	cfg := &runConfig{}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute r/w commands against the simulated MMU.",
		Long: "`run` reads commands from standard input, or from --input, " +
			"one per line: `r <addr>` prints the byte at a virtual address " +
			"and `w <addr> <byte>` writes one. Operands are hexadecimal. " +
			"An empty line ends the session.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSession(cmd, cfg)
		},
	}

	flags := runCmd.Flags()
	flags.StringVar(&cfg.swapPath, "swap", "swapfile.bin",
		"Swap file backing the virtual pages.")
	flags.StringVar(&cfg.input, "input", "",
		"Read commands from this file instead of standard input.")
	flags.StringVar(&cfg.loader, "loader", "swap",
		"Page loader: swap, or pattern to fill pages with their page number.")
	flags.StringVar(&cfg.policy, "policy", "fifo",
		"Page replacement policy: fifo, lru or clock.")
	flags.Uint64Var(&cfg.addressWidth, "address-width", 16,
		"Number of virtual address bits.")
	flags.Uint64Var(&cfg.log2PageSize, "log2-page-size", 8,
		"Log2 of the page size in bytes.")
	flags.Uint64Var(&cfg.memSize, "mem-size", 65536,
		"Bytes of physical memory.")
	flags.IntVar(&cfg.frames, "frames", 256,
		"Number of frames physical memory is split into.")
	flags.BoolVar(&cfg.trace, "trace", false,
		"Log every page event to standard error.")
	flags.StringVar(&cfg.record, "record", "",
		"Record page events into <path>.sqlite3.")
	flags.BoolVar(&cfg.monitor, "monitor", false,
		"Serve the MMU state over HTTP while running.")
	flags.IntVar(&cfg.monitorPort, "monitor-port", 0,
		"Port of the monitoring server. 0 picks a free port.")
	flags.BoolVar(&cfg.openBrowser, "open-browser", false,
		"Open the monitoring page in a browser.")
	flags.BoolVar(&cfg.stats, "stats", true,
		"Print the hit and miss statistics at the end.")
	flags.BoolVar(&cfg.flushOnExit, "flush-on-exit", false,
		"Write dirty resident pages back to the swap file at the end.")

	return runCmd
}

func runSession(cmd *cobra.Command, cfg *runConfig) error {
	geometry := vm.Geometry{
		AddressWidth: cfg.addressWidth,
		Log2PageSize: cfg.log2PageSize,
	}

	err := validateLayout(geometry, cfg.memSize, cfg.frames)
	if err != nil {
		return err
	}

	replacer, err := replacement.ByName(cfg.policy)
	if err != nil {
		return err
	}

	loader, closeLoader, err := openLoader(cfg, geometry)
	if err != nil {
		return err
	}
	defer closeLoader()

	m := mmu.MakeBuilder().
		WithAddressWidth(cfg.addressWidth).
		WithLog2PageSize(cfg.log2PageSize).
		WithMemSize(cfg.memSize).
		WithFrameCount(cfg.frames).
		WithReplacer(replacer).
		WithLoader(loader).
		Build("MMU")

	if cfg.trace {
		m.AcceptHook(trace.NewTracer(log.New(cmd.ErrOrStderr(), "", 0)))
	}

	if cfg.record != "" {
		recorder, err := datarecording.New(cfg.record)
		if err != nil {
			return err
		}
		defer recorder.Close()

		m.AcceptHook(trace.NewDBTracer(recorder))
	}

	if cfg.monitor {
		startMonitor(m, cfg)
	}

	in, closeInput, err := openInput(cmd, cfg.input)
	if err != nil {
		return err
	}
	defer closeInput()

	interpreter := console.NewInterpreter(m)
	runErr := interpreter.Run(in, cmd.OutOrStdout())

	if cfg.flushOnExit {
		err = m.FlushDirty()
		if err != nil {
			return err
		}
	}

	if cfg.stats {
		err = m.Stats().Report(cmd.OutOrStdout())
		if err != nil {
			return err
		}
	}

	return runErr
}

// validateLayout reports the configurations the MMU builder would reject.
func validateLayout(geometry vm.Geometry, memSize uint64, frames int) error {
	err := geometry.Validate()
	if err != nil {
		return err
	}

	if frames < 1 {
		return fmt.Errorf("at least one frame is required, got %d", frames)
	}

	if memSize%uint64(frames) != 0 {
		return fmt.Errorf("memory size %d is not a multiple of %d frames",
			memSize, frames)
	}

	if memSize/uint64(frames) != geometry.PageSize() {
		return fmt.Errorf("%d frames of %d bytes do not match the page "+
			"size %d", frames, memSize/uint64(frames), geometry.PageSize())
	}

	return nil
}

func openLoader(
	cfg *runConfig,
	geometry vm.Geometry,
) (pageloader.PageLoader, func(), error) {
	switch cfg.loader {
	case "pattern":
		loader := pageloader.NewPatternLoader(log.New(os.Stderr, "", 0))
		return loader, func() {}, nil
	case "swap":
		swap, err := pageloader.OpenSwapFile(cfg.swapPath, geometry.NumPages())
		if err != nil {
			return nil, nil, err
		}

		if swap.PageSize() != geometry.PageSize() {
			swap.Close()

			return nil, nil, fmt.Errorf("swap file %s has %d-byte pages, "+
				"expected %d", cfg.swapPath, swap.PageSize(),
				geometry.PageSize())
		}

		closeSwap := func() {
			err := swap.Close()
			if err != nil {
				log.Printf("failed to close swap file: %v", err)
			}
		}

		return swap, closeSwap, nil
	default:
		return nil, nil, fmt.Errorf("unknown loader %q", cfg.loader)
	}
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "" {
		return cmd.InOrStdin(), func() {}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}

	return f, func() { f.Close() }, nil
}

func startMonitor(m *mmu.Comp, cfg *runConfig) {
	monitor := monitoring.NewMonitor().WithPortNumber(cfg.monitorPort)
	monitor.RegisterMMU(m)

	url := monitor.StartServer()

	if cfg.openBrowser {
		err := browser.OpenURL(url)
		if err != nil {
			log.Printf("failed to open browser: %v", err)
		}
	}
}
