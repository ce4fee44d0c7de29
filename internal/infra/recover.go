package infra

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrPanicsExceeded is returned once a job has panicked more often than allowed.
var ErrPanicsExceeded = errors.New("panics limit exceeded")

// RunRecoverable runs f, restarting it after a panic. A negative maxPanics
// restarts forever. A non-panicking return ends the loop with f's error.
func RunRecoverable(ctx context.Context, maxPanics int, id string, f func(context.Context) error) error {
	entry := log.WithFields(log.Fields{"object": "Recoverable", "job": id})
	for {
		panicked, err := runOnce(ctx, f)
		if !panicked {
			return err
		}
		entry.WithError(err).Error("job panicked")
		if maxPanics == 0 {
			return errors.WithMessagef(ErrPanicsExceeded, "job %s", id)
		}
		if maxPanics > 0 {
			maxPanics--
			entry.Debugf("recovering job with max panics left: %d", maxPanics)
		} else {
			entry.Debug("recovering job")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func runOnce(ctx context.Context, f func(context.Context) error) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v, %s", r, identifyPanic())
			panicked = true
		}
	}()
	return false, f(ctx)
}

func identifyPanic() string {
	var name, file string
	var line int
	var pc [16]uintptr

	n := runtime.Callers(3, pc[:])
	for _, pc := range pc[:n] {
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		file, line = fn.FileLine(pc)
		name = fn.Name()
		if !strings.HasPrefix(name, "runtime.") {
			break
		}
	}

	switch {
	case name != "":
		return fmt.Sprintf("%v:%v", name, line)
	case file != "":
		return fmt.Sprintf("%v:%v", file, line)
	}

	return fmt.Sprintf("pc:%x", pc)
}
