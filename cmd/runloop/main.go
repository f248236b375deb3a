package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/joho/godotenv"

	"github.com/ChamsBouzaiene/runloop/internal/actions"
	"github.com/ChamsBouzaiene/runloop/internal/engine"
	"github.com/ChamsBouzaiene/runloop/internal/prompts"
	"github.com/ChamsBouzaiene/runloop/internal/providers"
)

func main() {
	_ = godotenv.Load()

	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("runloop: %v", err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("runloop", flag.ExitOnError)
	rootFlag := fs.String("root", ".", "working root the actions are confined to")
	maxSteps := fs.Int("max-steps", engine.DefaultMaxSteps, "stop after this many steps")
	verbose := fs.Bool("v", false, "log every step and model call")
	if err := fs.Parse(args); err != nil {
		return err
	}

	task := fs.Arg(0)
	if task == "" {
		return fmt.Errorf("usage: runloop [flags] \"<task>\"")
	}

	root, err := os.Getwd()
	if err != nil {
		return err
	}
	if *rootFlag != "." {
		root = *rootFlag
	}

	logger := newLogger(*verbose)

	model, modelID, err := providers.NewModelClientFromEnv()
	if err != nil {
		return err
	}

	registry, err := actions.BuildRegistry(root, actions.DefaultSet(), logger)
	if err != nil {
		return err
	}

	loop, err := engine.NewLoopBuilder().
		WithModel(model, modelID).
		WithRegistry(registry).
		WithPromptBuilder(prompts.ForLoop("", registry)).
		WithMaxSteps(*maxSteps).
		WithObservers(&engine.LoggerObserver{Log: logger}).
		WithObserverErrorFunc(func(err error) {
			logger.Error(err, "observer failure")
		}).
		Build()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, runErr := loop.Execute(ctx, task)
	printOutcome(out, modelID)
	return runErr
}

func newLogger(verbose bool) logr.Logger {
	opts := funcr.Options{}
	if verbose {
		opts.Verbosity = 1
	}
	return funcr.New(func(prefix, args string) {
		fmt.Fprintln(os.Stderr, prefix, args)
	}, opts)
}

func printOutcome(out *engine.Outcome, modelID string) {
	fmt.Printf("run %s stopped: %s\n", out.Run.ID, out.Reason)
	if out.Err != nil {
		fmt.Printf("error: %v\n", out.Err)
	}

	for i, step := range out.Run.Steps() {
		fmt.Printf("%3d. [%s] %s\n", i+1, step.Status(), step.Summary())
	}

	usage := out.Run.Usage()
	cost := engine.DefaultRateTable().RunCost(out.Run)
	fmt.Printf("\n%d model calls, %d tokens", out.Run.CallCount(), usage.Total)
	if cost > 0 {
		fmt.Printf(", $%.4f (%s)", cost, modelID)
	}
	fmt.Println()
}
