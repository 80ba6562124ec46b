package main

// Packet capture summary command

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/open-nexus/vmdbg/internal/errors"
	"github.com/open-nexus/vmdbg/internal/logging"
	"github.com/open-nexus/vmdbg/internal/pcap"
	"github.com/open-nexus/vmdbg/internal/report"
)

type pcapSummaryFlags struct {
	inputFile string
	tcpPorts  string
	udpPorts  string
	limit     int
	jsonOut   bool
	verbose   bool
	logFile   string
}

func newPcapSummaryCmd() *cobra.Command {
	flags := &pcapSummaryFlags{}

	cmd := &cobra.Command{
		Use:   "pcap-summary",
		Short: "Summarize Ethernet/ARP/IPv4 traffic in a PCAP file",
		Long: `Summarize traffic captured on the OS2VM network bridge.

Reads a classic (non-pcapng) libpcap capture, prints one line per ARP, UDP
and TCP packet up to --limit, and ends with a fixed-order counter report.
Port filters only select which lines are printed; every counter reflects the
whole file.

If --input is omitted, the first positional argument is used.`,
		Example: `  # Summarize a guest capture, highlighting the test ports
  vmdbg pcap-summary os2vm-A.pcap --tcp-ports 34567,34568 --udp-ports 37020

  # Counters only
  vmdbg pcap-summary --input os2vm-A.pcap --limit 0`,
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
			return runPcapSummary(flags)
		},
	}

	cmd.Flags().StringVar(&flags.inputFile, "input", "", "Input PCAP file (required)")
	cmd.Flags().StringVar(&flags.tcpPorts, "tcp-ports", "", "Comma-separated TCP ports to highlight")
	cmd.Flags().StringVar(&flags.udpPorts, "udp-ports", "", "Comma-separated UDP ports to highlight")
	cmd.Flags().IntVar(&flags.limit, "limit", 120, "Maximum number of detail lines to print")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "Emit the final report as JSON instead of the counter block")
	cmd.Flags().BoolVar(&flags.verbose, "verbose", false, "Log capture metadata and per-packet skips to stderr")
	cmd.Flags().StringVar(&flags.logFile, "log-file", "", "Duplicate diagnostics to a file")

	return cmd
}

func runPcapSummary(flags *pcapSummaryFlags) error {
	level := logging.LogLevelError
	if flags.verbose {
		level = logging.LogLevelDebug
	}
	logger, err := logging.NewLogger(level, flags.logFile)
	if err != nil {
		return err
	}
	defer logger.Close()

	tcpPorts, err := parsePortSet(flags.tcpPorts)
	if err != nil {
		return fmt.Errorf("parse --tcp-ports: %w", err)
	}
	udpPorts, err := parsePortSet(flags.udpPorts)
	if err != nil {
		return fmt.Errorf("parse --udp-ports: %w", err)
	}

	reader, err := pcap.Open(flags.inputFile)
	if err != nil {
		return errors.WrapPCAPError(err, flags.inputFile)
	}
	defer reader.Close()

	major, minor := reader.Version()
	logger.Verbose("pcap: version %d.%d, %s, snaplen=%d",
		major, minor, reader.ByteOrderName(), reader.Snaplen())

	summary, err := pcap.Summarize(reader, pcap.Options{
		TCPPorts: tcpPorts,
		UDPPorts: udpPorts,
		Limit:    flags.limit,
		Log:      logger,
	}, os.Stdout)
	if err != nil {
		return errors.WrapPCAPError(err, flags.inputFile)
	}
	logger.Info("summarized %d packets, printed %d detail lines",
		summary.Packets, summary.Printed)

	if flags.jsonOut {
		return report.WriteJSON(os.Stdout, summary)
	}
	report.WriteCounters(os.Stdout, summary.Counters)

	return nil
}

// parsePortSet parses a comma-separated port list. Empty input yields an
// empty set, which keeps everything.
func parsePortSet(s string) (map[uint16]struct{}, error) {
	ports := make(map[uint16]struct{})
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		port, err := strconv.ParseUint(field, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q", field)
		}
		ports[uint16(port)] = struct{}{}
	}
	return ports, nil
}
