// Command badgelink-log views and analyzes badge protocol capture files.
//
// Capture files are written by badgelink-node and badgelink-sim when run with
// the -protocol-log flag.
//
// Usage:
//
//	badgelink-log <command> [flags] <file.blog>
//
// Commands:
//
//	view     View capture in human-readable format
//	export   Export capture to JSONL or CSV
//	filter   Filter capture and write to new file
//	stats    Show statistics about the capture
//
// Examples:
//
//	# View all events
//	badgelink-log view badge.blog
//
//	# View only heartbeats from one peer
//	badgelink-log view --type heartbeat --peer 02:1a:7c:00:00:05 badge.blog
//
//	# View only dropped input
//	badgelink-log view --category drop badge.blog
//
//	# Export to CSV
//	badgelink-log export --format csv -o badge.csv badge.blog
//
//	# Extract one pairing session
//	badgelink-log filter --session 5f0c2a8e-... -o session.blog badge.blog
//
//	# Show statistics
//	badgelink-log stats badge.blog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/badgelink/badgelink-go/cmd/badgelink-log/commands"
)

const usage = `badgelink-log - Badge Protocol Capture Analyzer

Usage:
  badgelink-log <command> [flags] <file.blog>

Commands:
  view     View capture in human-readable format
  export   Export capture to JSONL or CSV
  filter   Filter capture and write to new file
  stats    Show statistics about the capture

Use "badgelink-log <command> -help" for more information about a command.
`

const (
	layerHelp    = "Filter by layer (radio, wire, pairing)"
	categoryHelp = "Filter by category (packet, notification, state, drop)"
	typeHelp     = "Filter by message type (hello, proposal, accept, reject, heartbeat, key_exchange, relay_url)"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// parseArgs parses fs and returns the capture file path.
func parseArgs(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func commandUsage(fs *flag.FlagSet, header string) func() {
	return func() {
		fmt.Fprint(os.Stderr, header)
		fs.PrintDefaults()
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = commandUsage(fs, `badgelink-log view - View capture in human-readable format

Usage:
  badgelink-log view [flags] <file.blog>

Flags:
`)

	layer := fs.String("layer", "", layerHelp)
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", categoryHelp)
	msgType := fs.String("type", "", typeHelp)
	peer := fs.String("peer", "", "Filter by peer address")

	path := parseArgs(fs, args)

	filter := commands.ViewFilter{Peer: *peer}
	if *layer != "" {
		l, err := commands.ParseLayerFlag(*layer)
		if err != nil {
			fatal(err)
		}
		filter.Layer = &l
	}
	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			fatal(err)
		}
		filter.Direction = &d
	}
	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fatal(err)
		}
		filter.Category = &c
	}
	if *msgType != "" {
		mt, err := commands.ParseTypeFlag(*msgType)
		if err != nil {
			fatal(err)
		}
		filter.MessageType = &mt
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fatal(err)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = commandUsage(fs, `badgelink-log export - Export capture to JSONL or CSV

Usage:
  badgelink-log export [flags] <file.blog>

Flags:
`)

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	path := parseArgs(fs, args)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fatal(err)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	fs.Usage = commandUsage(fs, `badgelink-log filter - Filter capture and write to new file

Usage:
  badgelink-log filter [flags] <file.blog>

Flags:
`)

	var opts commands.FilterOptions
	fs.StringVar(&opts.Output, "o", "", "Output file (required)")
	fs.StringVar(&opts.SessionID, "session", "", "Filter by pairing session ID")
	fs.StringVar(&opts.Peer, "peer", "", "Filter by peer address")
	fs.StringVar(&opts.Type, "type", "", typeHelp)
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&opts.Layer, "layer", "", layerHelp)
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", categoryHelp)

	path := parseArgs(fs, args)

	if opts.Output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	n, err := commands.RunFilter(path, opts)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Filtered %d events to %s\n", n, opts.Output)
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `badgelink-log stats - Show statistics about the capture

Usage:
  badgelink-log stats <file.blog>

`)
	}

	path := parseArgs(fs, args)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fatal(err)
	}
}
