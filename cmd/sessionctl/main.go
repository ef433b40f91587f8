// Command sessionctl inspects and manages the persisted client session.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		printHelp(out)
		return nil
	}

	switch args[0] {
	case "--version", "version", "-v":
		fmt.Fprintln(out, "sessionctl "+version)
		return nil
	case "help", "--help", "-h":
		printHelp(out)
		return nil
	case "keygen":
		return runKeygen(out)
	case "inspect":
		return withApp(ctx, args[1:], func(a *app) error { return a.inspect(ctx, out) })
	case "login":
		return withApp(ctx, args[1:], func(a *app) error { return a.login(ctx, out) })
	case "validate":
		return withApp(ctx, args[1:], func(a *app) error { return a.validate(ctx, out) })
	case "watch":
		return withApp(ctx, args[1:], func(a *app) error { return a.watch(ctx, out) })
	case "logout":
		return withApp(ctx, args[1:], func(a *app) error { return a.logout(ctx, out) })
	case "menu":
		return withApp(ctx, args[1:], func(a *app) error { return a.menu(ctx, out) })
	case "assign":
		return withApp(ctx, args[1:], func(a *app) error { return a.assign(ctx, out) })
	}

	return fmt.Errorf("unknown command %q, see sessionctl help", args[0])
}
