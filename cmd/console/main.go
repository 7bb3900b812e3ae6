// Command console is the terminal client of the report backend: it logs in,
// manages account settings and browses, downloads and deletes reports.
//
// Usage:
//
//	console login -u admin
//	console reports list
//	console reports download <report-id>
//
// See --help for all available options.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ccastromar/mirofish-console/internal/app"
	"github.com/ccastromar/mirofish-console/internal/config"
	"github.com/ccastromar/mirofish-console/internal/logx"
	"github.com/ccastromar/mirofish-console/internal/metrics"
)

// appCtor is a constructor indirection so tests can swap the session store.
var appCtor = func(env config.EnvVars) *app.App { return app.New(env) }

// fatalf indirection allows testing fatal paths without exiting the test process.
var fatalf = log.Fatalf

func run(ctx context.Context, args []string) {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)

	// failed runs are exported too
	if path, _ := cmd.PersistentFlags().GetString(metricsFileFlag); path != "" {
		if werr := metrics.WriteFile(path); werr != nil {
			logx.Warn("Console", "writing metrics to %s: %v", path, werr)
		}
	}
	if err != nil {
		fatalf("%s", describe(err))
	}
}

func main() {
	log.SetFlags(0)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	run(ctx, os.Args[1:])
}
