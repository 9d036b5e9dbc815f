// Package script runs a command-line program under the harness.
//
// Overview
// A Runner parses the command line through an Options value, activates a
// LoggingPolicy and hands a Script to the loop Driver. Scripts owning a
// long-running service link its lifecycle to the reactor shutdown with
// MainForService, so the process only exits once the service has stopped.
//
// Data flow:
//
//   Runner.Main          LoggingPolicy            Driver/Reactor          Script
//       |                     |                        |                    |
//   ParseOptions ---> OptionsWrapper(Options())        |                    |
//       |  (usage error: help + ERROR line, Exit(1))   |                    |
//       | ----------------> Service(reactor, opts)     |                    |
//       | Start logging service; stop it in PhaseAfter |                    |
//       | -----------------------------------> Driver.Run(r, main)       |
//       |                                              | main(ctx, r) ----->| Main
//       |                                              |                    | MainForService(svc)
//       |                                              |<-- signal/future --|
//       |                                              | FireShutdown: Stop(svc), Stop(logging)
//       |<-------------------- code -------------------|
//   System.Exit(code)
//
// Invariants:
//   - exactly one System.Exit per invocation
//   - --version and --help are honoured before any other flag is validated
//   - the future returned by MainForService resolves once, with nil, and
//     only after the service's Stop returned
//   - the log Observer emits exactly one slog record per legacy record, with
//     the attributes error and message
//
// The LoggingPolicy implementations are closed: StdoutLoggingPolicy,
// NullLoggingPolicy and CLILoggingPolicy.
package script
