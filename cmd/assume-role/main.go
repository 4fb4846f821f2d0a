package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/stscreds/assume-role/internal/cache"
	"github.com/stscreds/assume-role/internal/config"
	"github.com/stscreds/assume-role/internal/credentials"
	"github.com/stscreds/assume-role/internal/mfa"
	"github.com/stscreds/assume-role/internal/sts"
	"github.com/stscreds/assume-role/internal/ui"
	"github.com/stscreds/assume-role/internal/version"
	"github.com/stscreds/assume-role/pkg/duration"
)

func main() {
	var profileName string
	var extraConfig string
	var totpCode string
	var outputFormat ui.Format
	var execArgs []string
	var verboseMode = false
	var forceRefresh = false
	var useEnv = false
	var sessionDuration time.Duration

	// Parse command-line arguments
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			ui.PrintUsage()
			os.Exit(0)
		case "version":
			version.PrintVersion()
			os.Exit(0)
		case "-v", "--verbose":
			verboseMode = true
		case "-r", "--refresh":
			forceRefresh = true
		case "-e", "--env":
			useEnv = true
		case "-d", "--duration":
			value, ok := flagValue(args, &i, arg)
			if !ok {
				os.Exit(1)
			}
			var err error
			sessionDuration, err = duration.Parse(value)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if err := duration.Validate(sessionDuration); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		case "-f", "--format":
			value, ok := flagValue(args, &i, arg)
			if !ok {
				os.Exit(1)
			}
			var err error
			outputFormat, err = ui.ParseFormat(value)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		case "-t", "--totp-code":
			value, ok := flagValue(args, &i, arg)
			if !ok {
				os.Exit(1)
			}
			totpCode = value
		case "-c", "--config":
			value, ok := flagValue(args, &i, arg)
			if !ok {
				os.Exit(1)
			}
			extraConfig = value
		case "--":
			execArgs = args[i+1:]
			i = len(args)
		default:
			if strings.HasPrefix(arg, "-") {
				fmt.Fprintf(os.Stderr, "Error: Unknown flag '%s'\n", arg)
				fmt.Fprintf(os.Stderr, "Use -h or --help for usage information\n")
				os.Exit(1)
			}
			if profileName != "" {
				fmt.Fprintf(os.Stderr, "Error: Multiple profile names specified\n")
				fmt.Fprintf(os.Stderr, "Use -h or --help for usage information\n")
				os.Exit(1)
			}
			profileName = arg
		}
	}

	// Load layered configuration
	paths := config.DefaultPaths()
	if extraConfig != "" {
		if err := config.EnsureReadable(extraConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		paths = append(paths, extraConfig)
	}
	store, err := config.Load(paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if profileName == "" {
		// Interactive mode - show profile selector
		selected, err := ui.SelectProfileInteractively(store.AssumableProfiles())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		profileName = selected
	}

	// A command-line duration overrides the target profile's configured one
	if sessionDuration > 0 {
		if target, ok := store.Profile(profileName); ok {
			target.DurationSeconds = duration.Seconds(sessionDuration)
			store.Profiles[profileName] = target
		}
	}

	cachePath := store.Settings.CachePath
	if cachePath == "" {
		cachePath, err = cache.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	driver := &credentials.Driver{
		Store:   store,
		Cache:   cache.New(cachePath, store.Settings.SafetyMargin()),
		Invoker: sts.NewInvoker(store.Settings, verboseMode),
		MFAProvider: func(hop config.Profile) mfa.Provider {
			return mfa.ForProfile(hop.TOTPSecret, totpCode)
		},
		PreferEnv: useEnv,
		Verbose:   verboseMode,
	}

	// Ctrl-C aborts cleanly, including mid-backoff and at the MFA prompt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	creds, err := driver.Resolve(ctx, profileName, forceRefresh)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(execArgs) > 0 {
		if err := ui.Exec(creds, execArgs); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	format := outputFormat
	if format == "" {
		format = ui.FormatBash
	}
	out, err := ui.Render(format, creds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(out)
	if format == ui.FormatJSON {
		fmt.Println()
	}

	if verboseMode {
		ui.PrintSummary(profileName, creds)
	}
}

// flagValue pulls the value following a flag, advancing the index
func flagValue(args []string, i *int, flag string) (string, bool) {
	if *i+1 >= len(args) {
		fmt.Fprintf(os.Stderr, "Error: Flag '%s' requires a value\n", flag)
		fmt.Fprintf(os.Stderr, "Use -h or --help for usage information\n")
		return "", false
	}
	*i++
	return args[*i], true
}
