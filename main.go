package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	applog "iwdtui/internal/log"
	"iwdtui/internal/notify"
	"iwdtui/internal/tui"
	"iwdtui/iwd"
)

var (
	// Version is set at build time.
	Version string = "dev"
)

func main() {
	var (
		rootFlagSet = flag.NewFlagSet("iwdtui", flag.ExitOnError)
		theme       = rootFlagSet.String("theme", "", "path to theme toml file (env: IWDTUI_THEME)")
		debounce    = rootFlagSet.Duration("debounce", iwd.DefaultDebounce, "quiescence window for coalescing daemon signals")
		debug       = rootFlagSet.Bool("debug", false, "write a debug log to iwdtui-debug.log")
		version     = rootFlagSet.Bool("version", false, "display version")
	)

	var client *iwd.Client

	statusFlagSet := flag.NewFlagSet("status", flag.ExitOnError)
	statusJSON := statusFlagSet.Bool("json", false, "output in JSON format")
	statusCmd := &ffcli.Command{
		Name:      "status",
		ShortHelp: "Show device and connection state",
		FlagSet:   statusFlagSet,
		Exec: func(ctx context.Context, args []string) error {
			return runStatus(os.Stdout, *statusJSON, client)
		},
	}

	listFlagSet := flag.NewFlagSet("list", flag.ExitOnError)
	listJSON := listFlagSet.Bool("json", false, "output in JSON format")
	listKnown := listFlagSet.Bool("known", false, "list stored networks instead of visible ones")
	listCmd := &ffcli.Command{
		Name:      "list",
		ShortHelp: "List wifi networks",
		FlagSet:   listFlagSet,
		Exec: func(ctx context.Context, args []string) error {
			return runList(os.Stdout, *listJSON, *listKnown, client)
		},
	}

	scanCmd := &ffcli.Command{
		Name:      "scan",
		ShortHelp: "Trigger a background scan",
		Exec: func(ctx context.Context, args []string) error {
			return runScan(client)
		},
	}

	connectFlagSet := flag.NewFlagSet("connect", flag.ExitOnError)
	connectPassphrase := connectFlagSet.String("passphrase", "", "passphrase for the network (prompted if needed)")
	connectCmd := &ffcli.Command{
		Name:      "connect",
		ShortHelp: "Connect to a wifi network",
		FlagSet:   connectFlagSet,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("connect requires an ssid")
			}
			return runConnect(os.Stdout, client, args[0], *connectPassphrase)
		},
	}

	disconnectCmd := &ffcli.Command{
		Name:      "disconnect",
		ShortHelp: "Disconnect the current network",
		Exec: func(ctx context.Context, args []string) error {
			return runDisconnect(client)
		},
	}

	forgetCmd := &ffcli.Command{
		Name:      "forget",
		ShortHelp: "Remove stored credentials for a network",
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("forget requires an ssid")
			}
			return runForget(client, args[0])
		},
	}

	shareFlagSet := flag.NewFlagSet("share", flag.ExitOnError)
	sharePassphrase := shareFlagSet.String("passphrase", "", "passphrase to embed in the QR code")
	shareSecurity := shareFlagSet.String("security", "psk", "security type (open, psk, 8021x, wep)")
	shareHidden := shareFlagSet.Bool("hidden", false, "network is hidden")
	shareCmd := &ffcli.Command{
		Name:      "share",
		ShortHelp: "Print a wifi QR code for a network",
		FlagSet:   shareFlagSet,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("share requires an ssid")
			}
			return runShare(os.Stdout, args[0], *sharePassphrase, *shareSecurity, *shareHidden)
		},
	}

	root := &ffcli.Command{
		ShortUsage: "iwdtui [flags] <subcommand> [args...]",
		FlagSet:    rootFlagSet,
		Subcommands: []*ffcli.Command{
			statusCmd, listCmd, scanCmd, connectCmd, disconnectCmd, forgetCmd, shareCmd,
		},
		Exec: func(ctx context.Context, args []string) error {
			notifier := notifierOrFallback()
			return tui.Run(client, *debounce, notifier)
		},
	}

	// Parse the root flags up front so the theme and debug log are in place
	// before any subcommand runs. root.Run parses them again; that's fine.
	err := ff.Parse(rootFlagSet, os.Args[1:],
		ff.WithEnvVarPrefix("IWDTUI"),
		ff.WithIgnoreUndefined(true),
	)
	if err != nil {
		if err == flag.ErrHelp {
			root.FlagSet.Usage()
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if *version {
		fmt.Println(Version)
		os.Exit(0)
	}

	initLogging(*debug)

	if err := tui.LoadTheme(*theme); err != nil {
		fmt.Fprintf(os.Stderr, "error loading theme: %v\n", err)
		os.Exit(1)
	}

	client, err = iwd.NewSystem()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := root.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func initLogging(debug bool) {
	var w io.Writer = io.Discard
	if debug {
		f, err := os.OpenFile("iwdtui-debug.log", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err == nil {
			w = f
		}
	}
	applog.Init(slog.NewTextHandler(w, nil))
}

// notifierOrFallback prefers desktop notifications and falls back to stderr
// when no session bus is reachable.
func notifierOrFallback() iwd.Notifier {
	if d, err := notify.NewDesktop(); err == nil {
		return d
	}
	return notify.Writer{W: os.Stderr}
}
