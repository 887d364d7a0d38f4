// Command rangetool inspects and manipulates block range descriptors.
//
// Malformed descriptors and out-of-range queries are fatal: the tool logs the
// failure and exits non-zero without printing a partial result.
package main

import (
	"errors"
	"os"

	"github.com/garethgeorge/blockranges/internal/rangeset"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func main() {
	execute(&app{out: os.Stdout}, os.Args[1:])
}

// execute runs the command line in args and terminates through logger.Fatal on
// failure. The logger's fatal hook decides how the process ends.
func execute(a *app, args []string) {
	cmd := newRootCommand(a)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if a.logger == nil {
		a.logger, _ = newLogger("info")
		if a.logger == nil {
			a.logger = zap.NewExample()
		}
	}
	if err == nil {
		_ = a.logger.Sync()
		return
	}

	var rangeErr *rangeset.RangeError
	if errors.As(err, &rangeErr) {
		a.logger.Fatal("refusing to continue with unusable block ranges",
			zap.Stringer("kind", rangeErr.Kind), zap.Error(err))
	}
	a.logger.Fatal("rangetool failed", zap.Error(err))
}
