// Command mock-backend serves an in-memory double of the report backend for
// local development of the console.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ccastromar/mirofish-console/internal/config"
	"github.com/ccastromar/mirofish-console/internal/logx"
	"github.com/ccastromar/mirofish-console/internal/mockapi"
)

// runner is the minimal interface the backend must satisfy for running.
type runner interface {
	Serve(ctx context.Context, addr string) error
}

// serverCtor is a constructor indirection to enable testing without listening.
var serverCtor = func(opts mockapi.Options) (runner, error) {
	s, err := mockapi.New(opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// fatalf indirection allows testing fatal paths without exiting the test process.
var fatalf = log.Fatalf

func run(ctx context.Context, env *config.MockEnv, workers int) {
	logx.SetLevel(logx.ParseLevel(env.LogLevel))
	srv, err := serverCtor(mockapi.Options{
		DemoUsername:    env.DemoUsername,
		DemoPassword:    env.DemoPassword,
		CredentialsFile: env.CredentialsFile,
		FailFirst:       env.FailFirst,
		StepDelay:       env.StepDelay,
		Workers:         workers,
	})
	if err != nil {
		fatalf("error initializing mock backend: %v", err)
		return
	}
	if env.FailFirst > 0 {
		logx.Info("Mock", "first %d generate/chat requests will answer 503", env.FailFirst)
	}
	if err := srv.Serve(ctx, env.Addr); err != nil {
		fatalf("error running mock backend: %v", err)
		return
	}
}

func main() {
	env, err := config.LoadMockEnv()
	if err != nil {
		log.Fatalf("error loading configuration: %v", err)
	}

	// CLI flags override the environment
	addr := flag.String("addr", env.Addr, "address to listen on")
	failFirst := flag.Int("fail-first", env.FailFirst, "answer 503 to the first N generate/chat requests")
	workers := flag.Int("workers", 2, "report generation workers")
	flag.Parse()
	env.Addr, env.FailFirst = *addr, *failFirst

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	run(ctx, env, *workers)
}
