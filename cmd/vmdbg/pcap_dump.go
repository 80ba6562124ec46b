package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/open-nexus/vmdbg/internal/errors"
	"github.com/open-nexus/vmdbg/internal/pcap"
)

type pcapDumpFlags struct {
	inputFile   string
	port        uint16
	maxEntries  int
	showPayload bool
}

func newPcapDumpCmd() *cobra.Command {
	flags := &pcapDumpFlags{}

	cmd := &cobra.Command{
		Use:   "pcap-dump",
		Short: "Dump matching transport packets from a PCAP",
		Long: `Dump TCP/UDP packets from a capture, one header line each and optionally
a hex dump of the transport payload.

This is intended for targeted investigation of a single service port.`,
		Example: `  # Dump the first 10 packets on the discovery port, with payloads
  vmdbg pcap-dump os2vm-A.pcap --port 37020 --max 10 --payload`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if flags.inputFile == "" && len(args) > 0 {
				flags.inputFile = args[0]
			}
			if flags.inputFile == "" {
				return missingFlagError(cmd, "--input")
			}
			return runPcapDump(flags)
		},
	}

	cmd.Flags().StringVar(&flags.inputFile, "input", "", "Input PCAP file (required)")
	cmd.Flags().Uint16Var(&flags.port, "port", 0, "Only dump packets with this src or dst port (0 = all)")
	cmd.Flags().IntVar(&flags.maxEntries, "max", 10, "Maximum number of packets to dump")
	cmd.Flags().BoolVar(&flags.showPayload, "payload", false, "Include a hex dump of the transport payload")

	return cmd
}

func runPcapDump(flags *pcapDumpFlags) error {
	reader, err := pcap.Open(flags.inputFile)
	if err != nil {
		return errors.WrapPCAPError(err, flags.inputFile)
	}
	defer reader.Close()

	dumped, err := pcap.Dump(reader, pcap.DumpOptions{
		Port:        flags.port,
		Max:         flags.maxEntries,
		ShowPayload: flags.showPayload,
	}, os.Stdout)
	if err != nil {
		return errors.WrapPCAPError(err, flags.inputFile)
	}

	if dumped == 0 {
		fmt.Fprintln(os.Stdout, "no matching packets")
	}
	return nil
}
