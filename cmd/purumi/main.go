package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/purumi/purumi/config"
	"github.com/purumi/purumi/internal/bootstrap"
)

type commandFn func(cc *commandContext, args []string) error

type command struct {
	name        string
	description string
	// needsApp commands run with a started controller.
	needsApp bool
	run      commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
	Err    io.Writer

	App *bootstrap.App
	Nav *terminalNavigator
}

// errUsage marks errors already explained to the user.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code) //nolint:forbidigo // CLI must propagate command status to the shell
}

func run(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("purumi", flag.ContinueOnError)
	global.SetOutput(stderr)
	route := global.String("route", "/home", "Screen route the session starts on")
	envFile := global.String("env-file", ".env", "Optional .env file")
	global.Usage = func() { _ = printUsage(stderr) }
	if err := global.Parse(argv); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		_ = printUsage(stderr)
		return 2
	}

	name := global.Arg(0)
	cmd, ok := commands()[name]
	if !ok {
		_ = writef(stderr, "unknown command %q\n\n", name)
		_ = printUsage(stderr)
		return 2
	}

	cfg, err := bootstrap.LoadConfig(*envFile)
	if err != nil {
		_ = writef(stderr, "load config: %v\n", err)
		return 1
	}
	logger := bootstrap.InitLogger(stderr, cfg.Observability.Logging, cfg.IsDev)

	shutdown, err := bootstrap.InitTracing(ctx, cfg.Observability.Tracing)
	if err != nil {
		logger.ErrorContext(ctx, "init tracing", "error", err)
		return 1
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.WarnContext(ctx, "tracing shutdown failed", "error", err)
		}
	}()

	cc := &commandContext{Ctx: ctx, Logger: logger, Config: cfg, Out: stdout, Err: stderr}
	if err := execute(cc, cmd, *route, global.Args()[1:]); err != nil {
		if !errors.Is(err, errUsage) {
			logger.ErrorContext(ctx, "command failed", "command", name, "error", err)
		}
		return 1
	}
	return 0
}

func execute(cc *commandContext, cmd command, route string, args []string) error {
	if !cmd.needsApp {
		return cmd.run(cc, args)
	}
	if err := cc.Config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cc.Nav = newTerminalNavigator(cc.Out, cc.Config.Guard.Guard().Routes(), route)
	app, err := bootstrap.BuildApp(cc.Ctx, bootstrap.AppOptions{
		Config:    cc.Config,
		Navigator: cc.Nav,
		Logger:    cc.Logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			cc.Logger.WarnContext(cc.Ctx, "close app failed", "error", cerr)
		}
	}()
	if err := app.Controller.Start(cc.Ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	cc.App = app
	return cmd.run(cc, args)
}

func commands() map[string]command {
	cmds := []command{
		{name: "status", description: "Show the current identity and screen", needsApp: true, run: runStatus},
		{name: "sign-in", description: "Sign in with email and password", needsApp: true, run: runSignIn},
		{name: "sign-up", description: "Create an account and save its profile", needsApp: true, run: runSignUp},
		{name: "sign-out", description: "Sign out and leave guest mode", needsApp: true, run: runSignOut},
		{name: "guest", description: "Continue as a guest", needsApp: true, run: runGuest},
		{name: "guard", description: "Show the guard decision for a route without navigating", needsApp: true, run: runGuard},
		{name: "view", description: "Record a view of a video", needsApp: true, run: runView},
		{name: "like", description: "Toggle the like on a video (signed-in users)", needsApp: true, run: runLike},
		{name: "stats", description: "Show a video's counters", needsApp: true, run: runStats},
		{name: "draft", description: "Save, show or clear the reservation draft", needsApp: true, run: runDraft},
		{name: "services", description: "List bookable clinic services", needsApp: true, run: runServices},
		{name: "reserve", description: "Book a service, or the stored draft (signed-in users)", needsApp: true, run: runReserve},
		{name: "reservations", description: "List your reservations", needsApp: true, run: runReservations},
		{name: "reset", description: "Clear all device storage", needsApp: true, run: runReset},
		{name: "migrate", description: "Run database migrations", run: runMigrate},
	}
	out := make(map[string]command, len(cmds))
	for _, c := range cmds {
		out[c.name] = c
	}
	return out
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: purumi [-route /home] [-env-file .env] <command> [flags]\n\nAvailable commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for n := range cmds {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if err := writef(w, "  %-10s %s\n", n, cmds[n].description); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
