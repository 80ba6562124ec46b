package main

// UART/serial log post-processing command

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/open-nexus/vmdbg/internal/config"
	"github.com/open-nexus/vmdbg/internal/uart"
)

type uartFilterFlags struct {
	inputFile   string
	stripEscape bool
	extractPutc bool
	grep        []string
	exclude     []string
	configFile  string
	profile     string
}

func newUARTFilterCmd() *cobra.Command {
	flags := &uartFilterFlags{}

	cmd := &cobra.Command{
		Use:   "uart-filter [path]",
		Short: "Filter and clean UART console logs",
		Long: `Post-process a UART log captured from the VM serial console. Reads the
positional file, or stdin when omitted.

--strip-escape decodes the E-interleaved probe encoding. --grep keeps lines
containing all given substrings, --exclude drops lines containing any.
--extract-debug-putc re-assembles characters written through the debug-putc
syscall from kernel trace lines; grep/exclude do not apply on that path.

Common flag combinations can be stored as named profiles in a YAML file and
selected with --config/--profile; explicit flags are added on top.`,
		Example: `  # Decode the probe encoding and page through the log
  vmdbg uart-filter --strip-escape uart.log | less

  # Keep init lines, drop the metadata service chatter
  vmdbg uart-filter --grep "init:" --exclude "svc-meta" uart.log

  # Use a stored profile
  vmdbg uart-filter --config filters.yaml --profile boot uart.log`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				flags.inputFile = args[0]
			}
			return runUARTFilter(flags)
		},
	}

	cmd.Flags().BoolVar(&flags.stripEscape, "strip-escape", false, "Decode probe lines prefixed with 'E' characters")
	cmd.Flags().BoolVar(&flags.extractPutc, "extract-debug-putc", false, "Extract characters written via the debug-putc syscall from kernel trace lines")
	cmd.Flags().StringArrayVar(&flags.grep, "grep", nil, "Keep lines containing this substring (repeatable, AND semantics)")
	cmd.Flags().StringArrayVar(&flags.exclude, "exclude", nil, "Drop lines containing this substring (repeatable)")
	cmd.Flags().StringVar(&flags.configFile, "config", "", "YAML file with named filter profiles")
	cmd.Flags().StringVar(&flags.profile, "profile", "", "Profile name to apply from --config")

	return cmd
}

func runUARTFilter(flags *uartFilterFlags) error {
	filter := uart.Filter{
		StripEscape:      flags.stripEscape,
		ExtractDebugPutc: flags.extractPutc,
		Grep:             flags.grep,
		Exclude:          flags.exclude,
	}

	if flags.profile != "" && flags.configFile == "" {
		return fmt.Errorf("--profile requires --config")
	}
	if flags.configFile != "" {
		if flags.profile == "" {
			return fmt.Errorf("--config requires --profile")
		}
		cfg, err := config.Load(flags.configFile)
		if err != nil {
			return err
		}
		profile, err := cfg.Profile(flags.profile)
		if err != nil {
			return err
		}
		// Explicit flags add to the profile: bools OR, lists append.
		filter.StripEscape = filter.StripEscape || profile.StripEscape
		filter.ExtractDebugPutc = filter.ExtractDebugPutc || profile.ExtractDebugPutc
		filter.Grep = append(append([]string{}, profile.Grep...), filter.Grep...)
		filter.Exclude = append(append([]string{}, profile.Exclude...), filter.Exclude...)
	}

	var in io.Reader = os.Stdin
	if flags.inputFile != "" {
		f, err := os.Open(flags.inputFile)
		if err != nil {
			return fmt.Errorf("open input file: %w", err)
		}
		defer f.Close()
		in = f
	}

	return filter.Run(in, os.Stdout)
}
