package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/CZERTAINLY/harness/internal/config"
	"github.com/CZERTAINLY/harness/internal/future"
	"github.com/CZERTAINLY/harness/internal/legacylog"
	"github.com/CZERTAINLY/harness/internal/loop"
	"github.com/CZERTAINLY/harness/internal/script"
)

// ConfigEnv names the configuration file, harness.yaml is searched for when
// unset.
const ConfigEnv = "HARNESS_CONFIG"

func main() {
	newRunner(script.OSSystem(), os.Getenv(ConfigEnv)).Main()
}

// newRunner builds the runner of the heartbeat command. A configuration
// which cannot be loaded is reported after --version and --help had their
// chance, the defaults stand in until then.
func newRunner(sys *script.System, configPath string) *script.Runner {
	cfg, err := config.Load(configPath)
	if err != nil {
		cfg, err = config.Default(), fmt.Errorf("loading configuration: %w", err)
	}
	policy, perr := script.PolicyFor(cfg.Log)
	if perr != nil {
		policy, err = script.NullLoggingPolicy{}, errors.Join(err, perr)
	}

	return &script.Runner{
		Script: script.ScriptFunc(runHeartbeat),
		Options: func() script.Options {
			o := newHeartbeatOptions(cfg.Heartbeat)
			o.configErr = err
			return script.WithStandardOptions(o, sys)
		},
		Policy: policy,
		Sys:    sys,
	}
}

func runHeartbeat(ctx context.Context, r *loop.Reactor, o script.Options) *future.Future {
	opts, ok := script.As[*heartbeatOptions](o)
	if !ok {
		return future.Resolved(fmt.Errorf("unexpected options %T", o))
	}
	slog.InfoContext(ctx, "harness started", "interval", opts.Interval.String())
	return script.MainForService(ctx, r, newHeartbeat(opts.Interval, opts.Message, legacylog.Default)).Future
}
