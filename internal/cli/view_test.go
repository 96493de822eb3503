package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestViewFlagsOptions(t *testing.T) {
	var f viewFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.register(fs)
	if err := fs.Parse([]string{"--from", "2024-05-01", "--banks", "Galicia,BBVA", "--threshold", "2.5"}); err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	opts, err := f.options()
	if err != nil {
		t.Fatalf("options error: %v", err)
	}
	if opts.From == nil || opts.From.Format("2006-01-02") != "2024-05-01" {
		t.Fatalf("unexpected from %v", opts.From)
	}
	if opts.To != nil {
		t.Fatalf("to should be unset, got %v", opts.To)
	}
	if len(opts.Banks) != 2 || opts.Banks[1] != "BBVA" || opts.Threshold != 2.5 {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestViewFlagsDefaultsAndErrors(t *testing.T) {
	var f viewFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.register(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	opts, err := f.options()
	if err != nil {
		t.Fatalf("options error: %v", err)
	}
	if opts.Threshold != -1 || opts.Banks != nil || opts.From != nil {
		t.Fatalf("unexpected defaults %+v", opts)
	}

	f.to = "2024/05/01"
	if _, err := f.options(); err == nil {
		t.Fatal("expected error for malformed --to")
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"run": false, "show": false, "scan": false, "export": false, "backfill": false, "serve": false, "migrate": false, "history": false, "simulate-alert": false, "version": false}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %s not registered", name)
		}
	}
}

func TestPersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "log-level", "no-color"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("persistent flag --%s missing", name)
		}
	}
}

func TestVersionSkipsConfig(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version", "--config", "does-not-exist.yaml"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := Execute(context.Background()); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !strings.Contains(out.String(), "dev") {
		t.Fatalf("unexpected version output %q", out.String())
	}
}
