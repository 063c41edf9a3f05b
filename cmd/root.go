package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/maxvaer/cmsid/internal/config"
	"github.com/maxvaer/cmsid/internal/logging"
	"github.com/maxvaer/cmsid/internal/runner"
	"github.com/maxvaer/cmsid/pkg/version"
)

var (
	opts      config.Options
	rawHeader []string

	logger    *logrus.Logger
	logCloser io.Closer
)

type flagGroup struct {
	title string
	flags []string
}

var helpGroups = []flagGroup{
	{"TARGET", []string{"url", "urls-file", "cidr", "ports"}},
	{"SIGNATURES", []string{"signatures", "cms"}},
	{"RATE-LIMIT", []string{"threads", "timeout", "delay", "adaptive-throttle"}},
	{"HTTP", []string{"ua", "user-agent", "header"}},
	{"FILTERS", []string{"only-identified", "hide-inaccessible", "match-cms"}},
	{"OUTPUT", []string{"output", "format", "quiet", "no-color", "sort", "on-result"}},
	{"CONFIGURATION", []string{"config", "resume-file", "verbose", "log-format", "log-file"}},
}

var rootCmd = &cobra.Command{
	Use:     "cmsid -u <url> [flags]",
	Short:   "Identify the CMS behind one or many websites",
	Version: version.Version,
	Long: `cmsid fingerprints websites against a table of CMS signatures. Each
signature names a path to fetch and a keyword or MD5 hash the response must
match. Targets are scanned concurrently and reported in input order.`,
	Example: `  cmsid -u example.com
  cmsid -u https://example.com --ua
  cmsid -r urls.txt -o results.json --format json
  cat urls.txt | cmsid -r - --only-identified
  cmsid --cidr 192.168.1.0/24 --ports 80,443,8080 -t 50
  cmsid -u example.com --signatures cms_finger.db --cms WordPress,Joomla
  cmsid -r urls.txt --resume-file scan.state
  cmsid -r urls.txt --on-result "notify-send '{cms}' {url}"
  cmsid serve --listen :8080`,
	PersistentPreRunE: setup,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if opts.URL == "" && opts.URLsFile == "" && opts.CIDRTargets == "" {
			_ = cmd.Help()
			fmt.Fprintln(os.Stderr)
			return fmt.Errorf("target required: use -u, -r or --cidr")
		}
		return validate(&opts)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return runner.Run(ctx, &opts, logger)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	p := rootCmd.PersistentFlags()

	// Signatures
	p.StringVarP(&opts.SignaturesPath, "signatures", "s", "", "Signature database (.db/.sqlite) or YAML file (default: built-in)")
	p.StringSliceVar(&opts.CMSNames, "cms", nil, "Only probe signatures of these CMS names")

	// Performance
	p.IntVarP(&opts.Threads, "threads", "t", 0, "Max targets scanned at once (0 = all at once)")
	p.DurationVar(&opts.Timeout, "timeout", config.DefaultTimeout, "Per-request timeout")
	p.DurationVar(&opts.Delay, "delay", 0, "Delay between signature probes of one target")
	p.BoolVar(&opts.AdaptiveThrottle, "adaptive-throttle", false, "Back off per target on 429/503 or repeated errors")

	// HTTP
	p.BoolVar(&opts.SpoofUA, "ua", false, "Send a browser User-Agent on signature probes")
	p.StringVar(&opts.UserAgent, "user-agent", "", "Custom User-Agent for signature probes (implies --ua)")
	p.StringSliceVarP(&rawHeader, "header", "H", nil, "Custom headers for signature probes (Key: Value)")

	// Logging and configuration
	p.StringVar(&opts.ConfigFile, "config", "", "YAML config file (keys are flag names)")
	p.BoolVarP(&opts.Verbose, "verbose", "v", false, "Debug logging")
	p.StringVar(&opts.LogFormat, "log-format", "text", "Log format: text, json")
	p.StringVar(&opts.LogFile, "log-file", "", "Write logs to this file (rotated)")
	p.BoolVarP(&opts.Quiet, "quiet", "q", false, "Minimal output")

	f := rootCmd.Flags()

	// Target
	f.StringVarP(&opts.URL, "url", "u", "", "Target URL")
	f.StringVarP(&opts.URLsFile, "urls-file", "r", "", "File with one URL per line (- for stdin)")
	f.StringVar(&opts.CIDRTargets, "cidr", "", "CIDR range to scan (e.g. 192.168.1.0/24)")
	f.StringVar(&opts.Ports, "ports", "", "Ports for CIDR targets (comma-separated, e.g. 80,443,8080)")

	// Filters
	f.BoolVar(&opts.OnlyIdentified, "only-identified", false, "Only show targets whose CMS was identified")
	f.BoolVar(&opts.HideInaccessible, "hide-inaccessible", false, "Hide targets that failed the accessibility check")
	f.StringVar(&opts.MatchCMS, "match-cms", "", "Only show targets identified as these CMS names (comma-separated)")

	// Output
	f.StringVarP(&opts.OutputFile, "output", "o", "", "Output file path")
	f.StringVar(&opts.OutputFormat, "format", "text", "Output format: text, json, csv")
	f.BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")
	f.StringVar(&opts.SortBy, "sort", "", "Sort results: url, cms, duration (buffers until scan completes)")
	f.StringVar(&opts.OnResultCmd, "on-result", "", "Shell command to run for each result (receives JSON on stdin)")
	f.StringVar(&opts.ResumeFile, "resume-file", "", "File to save/load scan progress for resume")

	rootCmd.AddCommand(serveCmd, signaturesCmd, versionCmd)

	// Custom help: categorized flags like httpx.
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != rootCmd {
			fmt.Fprint(os.Stderr, cmd.UsageString())
			return
		}
		w := os.Stderr
		fmt.Fprint(w, helpBanner(cmd.Version))
		fmt.Fprintf(w, "%s\n\nUsage:\n  %s\n  cmsid [command]\n", cmd.Long, cmd.UseLine())
		fmt.Fprintf(w, "\nExamples:\n%s\n", cmd.Example)
		fmt.Fprintf(w, "\nCommands:\n")
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() {
				fmt.Fprintf(w, "   %-12s%s\n", c.Name(), c.Short)
			}
		}
		fmt.Fprintf(w, "\nFlags:\n")
		for _, g := range helpGroups {
			fmt.Fprintf(w, "\n%s:\n", g.title)
			for _, name := range g.flags {
				if f := cmd.Flags().Lookup(name); f != nil {
					fmt.Fprintln(w, formatFlag(f))
				}
			}
		}
		fmt.Fprintln(w)
	})
}

// setup runs before every command: config file and CMSID_* environment
// fill unset flags, headers are parsed and the logger is built.
func setup(cmd *cobra.Command, args []string) error {
	if err := config.ApplyFile(opts.ConfigFile, cmd.Flags()); err != nil {
		return err
	}

	headers, err := parseHeaders(rawHeader)
	if err != nil {
		return err
	}
	opts.Headers = headers

	logger, logCloser, err = logging.New(logging.Options{
		Format:  opts.LogFormat,
		File:    opts.LogFile,
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	return err
}

func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("invalid header format %q, expected 'Key: Value'", h)
		}
		headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return headers, nil
}

func validate(o *config.Options) error {
	if o.Threads < 0 {
		return fmt.Errorf("--threads must not be negative")
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("--timeout must be positive")
	}
	switch o.OutputFormat {
	case "text", "json", "csv":
	default:
		return fmt.Errorf("--format must be one of: text, json, csv")
	}
	switch o.SortBy {
	case "", "url", "cms", "duration":
	default:
		return fmt.Errorf("--sort must be one of: url, cms, duration")
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func formatFlag(f *pflag.Flag) string {
	var left string
	if f.Shorthand != "" {
		left = fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	} else {
		left = fmt.Sprintf("    --%s", f.Name)
	}

	typ := f.Value.Type()
	if typ != "bool" {
		left += " " + typ
	}

	// Pad to fixed column width for aligned descriptions.
	const col = 36
	for len(left) < col {
		left += " "
	}

	right := f.Usage
	// Show default for non-zero values.
	def := f.DefValue
	if def != "" && def != "false" && def != "0" && def != "0s" && def != "[]" {
		right += fmt.Sprintf(" (default %s)", def)
	}

	return "   " + left + right
}

func helpBanner(ver string) string {
	if ver != "dev" && ver != "" && !strings.HasPrefix(ver, "v") {
		ver = "v" + ver
	}
	return fmt.Sprintf(`
                        _     __
  _________ ___  _____(_)___/ /
 / ___/ __ `+"`"+`__ \/ ___/ / __  /
/ /__/ / / / / (__  ) / /_/ /
\___/_/ /_/ /_/____/_/\__,_/   %s

`, ver)
}
