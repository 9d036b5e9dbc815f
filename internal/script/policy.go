package script

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/CZERTAINLY/harness/internal/config"
	"github.com/CZERTAINLY/harness/internal/log"
	"github.com/CZERTAINLY/harness/internal/loop"
)

const (
	AppName   = "Harness"
	AppVendor = "CZERTAINLY"

	defaultProgram    = "harness"
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 5
)

// LoggingPolicy selects where the log output of a script goes and which
// flags are needed to configure the destination. The set of policies is
// closed: StdoutLoggingPolicy, NullLoggingPolicy and CLILoggingPolicy.
type LoggingPolicy interface {
	// OptionsWrapper decorates the options of a script with the flags the
	// policy needs. The result can be used wherever o can.
	OptionsWrapper(o Options) Options
	// Service returns the service which opens the destination on Start and
	// flushes it on Stop. o must come from OptionsWrapper.
	Service(r *loop.Reactor, o Options) loop.Service

	loggingPolicy()
}

// PolicyFor returns the policy selected by the log.destination setting.
func PolicyFor(cfg config.Log) (LoggingPolicy, error) {
	switch cfg.Destination {
	case config.LogCLI, "":
		return CLILoggingPolicy{Config: cfg}, nil
	case config.LogStdout:
		return StdoutLoggingPolicy{Config: cfg.Config}, nil
	case config.LogNull:
		return NullLoggingPolicy{}, nil
	default:
		return nil, fmt.Errorf("unsupported log destination %q", cfg.Destination)
	}
}

// StdoutLoggingPolicy writes the log to Stdout, the process standard output
// when nil.
type StdoutLoggingPolicy struct {
	Stdout io.Writer
	Config log.Config
}

func (StdoutLoggingPolicy) loggingPolicy() {}

func (p StdoutLoggingPolicy) OptionsWrapper(o Options) Options {
	return o
}

func (p StdoutLoggingPolicy) Service(_ *loop.Reactor, _ Options) loop.Service {
	w := p.Writer()
	return newLogService(p.Config, false, func() (io.Writer, error) {
		return w, nil
	})
}

func (p StdoutLoggingPolicy) Writer() io.Writer {
	if p.Stdout == nil {
		return os.Stdout
	}
	return p.Stdout
}

// NullLoggingPolicy discards the log. The logging handler is left untouched.
type NullLoggingPolicy struct{}

func (NullLoggingPolicy) loggingPolicy() {}

func (NullLoggingPolicy) OptionsWrapper(o Options) Options {
	return o
}

func (NullLoggingPolicy) Service(_ *loop.Reactor, _ Options) loop.Service {
	return &loop.BaseService{}
}

// DirResolver returns the per user log directory of an application.
type DirResolver interface {
	UserLogDir(app, vendor string) string
}

type DirResolverFunc func(app, vendor string) string

func (f DirResolverFunc) UserLogDir(app, vendor string) string {
	return f(app, vendor)
}

// XDGDirs resolves log directories with the platform conventions.
var XDGDirs DirResolver = DirResolverFunc(xdgLogDir)

func xdgLogDir(app, vendor string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(xdg.Home, "Library", "Logs", app)
	case "windows":
		return filepath.Join(xdg.DataHome, vendor, app, "Logs")
	default:
		return filepath.Join(xdg.CacheHome, app, "log")
	}
}

// CLILoggingPolicy writes rotating log files to the directory given by
// --log-dir. The file is named after Program and the process id.
type CLILoggingPolicy struct {
	Dirs    DirResolver
	Getpid  func() int
	Program string
	Config  config.Log
}

func (CLILoggingPolicy) loggingPolicy() {}

// LogDirOptions adds --log-dir to the wrapped options.
type LogDirOptions struct {
	Options
	LogDir string
}

func (o *LogDirOptions) Unwrap() Options {
	return o.Options
}

func (o *LogDirOptions) AddFlags(fs *pflag.FlagSet) {
	o.Options.AddFlags(fs)
	fs.StringVar(&o.LogDir, "log-dir", o.LogDir, "directory of the log files")
}

func (p CLILoggingPolicy) OptionsWrapper(o Options) Options {
	dirs := p.Dirs
	if dirs == nil {
		dirs = XDGDirs
	}
	return &LogDirOptions{
		Options: o,
		LogDir:  dirs.UserLogDir(AppName, AppVendor),
	}
}

func (p CLILoggingPolicy) Service(_ *loop.Reactor, o Options) loop.Service {
	lo, ok := As[*LogDirOptions](o)
	if !ok {
		panic(fmt.Sprintf("script: %T was not wrapped by CLILoggingPolicy", o))
	}
	path := p.LogFile(lo.LogDir)
	maxSize, maxBackups := p.Config.MaxSizeMB, p.Config.MaxBackups
	if maxSize <= 0 {
		maxSize = defaultMaxSizeMB
	}
	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}
	return newLogService(p.Config.Config, true, func() (io.Writer, error) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		return &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
		}, nil
	})
}

// LogFile returns the path of the log file in dir.
func (p CLILoggingPolicy) LogFile(dir string) string {
	program := p.Program
	if program == "" {
		program = defaultProgram
	}
	getpid := p.Getpid
	if getpid == nil {
		getpid = os.Getpid
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%d.log", program, getpid()))
}
