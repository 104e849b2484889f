package modload

import (
	"context"
	"strings"

	"github.com/apex/log"
	"github.com/dop251/goja"
	uuid "github.com/satori/go.uuid"
)

// sandbox is the per-call execution environment: a fresh runtime plus the
// table of modules required during this load. It is discarded when the call
// returns, so no module state leaks between loads.
type sandbox struct {
	loader  *ScriptLoader
	vm      *goja.Runtime
	id      string
	ctx     context.Context
	logger  *log.Entry
	modules map[string]*scriptModule

	// esm switches the sandbox into dynamic-import mode, where module-style
	// sources are lowered to CommonJS instead of rejected
	esm bool

	nested error
}

func newSandbox(loader *ScriptLoader, ctx context.Context) *sandbox {
	id := uuid.NewV4().String()

	sb := &sandbox{
		loader:  loader,
		vm:      goja.New(),
		id:      id,
		ctx:     ctx,
		logger:  log.WithField("load", id),
		modules: make(map[string]*scriptModule),
	}

	sb.registerDefaults()
	return sb
}

func (sb *sandbox) registerDefaults() {
	console := sb.vm.NewObject()
	console.Set("log", sb.consolePrinter(log.InfoLevel))
	console.Set("info", sb.consolePrinter(log.InfoLevel))
	console.Set("debug", sb.consolePrinter(log.DebugLevel))
	console.Set("warn", sb.consolePrinter(log.WarnLevel))
	console.Set("error", sb.consolePrinter(log.ErrorLevel))
	sb.vm.Set("console", console)

	sb.vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		return goja.Null()
	})
}

func (sb *sandbox) consolePrinter(level log.Level) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, argument := range call.Arguments {
			parts[i] = argument.String()
		}
		message := strings.Join(parts, " ")

		switch level {
		case log.DebugLevel:
			sb.logger.Debug(message)
		case log.WarnLevel:
			sb.logger.Warn(message)
		case log.ErrorLevel:
			sb.logger.Error(message)
		default:
			sb.logger.Info(message)
		}
		return goja.Undefined()
	}
}

// takeNestedError recovers the Go-side error that a require callback threw
// into the script, so sentinel errors survive the trip through the runtime.
func (sb *sandbox) takeNestedError(err error) error {
	nested := sb.nested
	sb.nested = nil

	if nested != nil && strings.Contains(err.Error(), nested.Error()) {
		return nested
	}
	return nil
}
