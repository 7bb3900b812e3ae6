package main

import (
	"context"
	"errors"
	"testing"

	"github.com/ccastromar/mirofish-console/internal/config"
	"github.com/ccastromar/mirofish-console/internal/mockapi"
)

type fakeServer struct {
	addr string
	err  error
}

func (f *fakeServer) Serve(ctx context.Context, addr string) error {
	f.addr = addr
	return f.err
}

func swap(t *testing.T, ctor func(mockapi.Options) (runner, error)) *bool {
	t.Helper()
	oldCtor, oldFatalf := serverCtor, fatalf
	t.Cleanup(func() { serverCtor = oldCtor; fatalf = oldFatalf })
	serverCtor = ctor

	calledFatal := false
	fatalf = func(format string, v ...any) { calledFatal = true }
	return &calledFatal
}

func TestRun_Success(t *testing.T) {
	fs := &fakeServer{}
	var got mockapi.Options
	calledFatal := swap(t, func(o mockapi.Options) (runner, error) { got = o; return fs, nil })

	run(context.Background(), &config.MockEnv{Addr: ":7000", DemoUsername: "demo", FailFirst: 2}, 3)

	if *calledFatal {
		t.Fatalf("did not expect fatalf to be called")
	}
	if fs.addr != ":7000" {
		t.Fatalf("expected :7000, got %q", fs.addr)
	}
	if got.DemoUsername != "demo" || got.FailFirst != 2 || got.Workers != 3 {
		t.Fatalf("unexpected options %+v", got)
	}
}

func TestRun_FatalOnCtorError(t *testing.T) {
	calledFatal := swap(t, func(mockapi.Options) (runner, error) { return nil, errors.New("boom") })

	run(context.Background(), &config.MockEnv{}, 1)

	if !*calledFatal {
		t.Fatalf("expected fatalf to be called on ctor error")
	}
}

func TestRun_FatalOnServeError(t *testing.T) {
	calledFatal := swap(t, func(mockapi.Options) (runner, error) { return &fakeServer{err: errors.New("oops")}, nil })

	run(context.Background(), &config.MockEnv{}, 1)

	if !*calledFatal {
		t.Fatalf("expected fatalf to be called on serve error")
	}
}
