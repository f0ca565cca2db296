package cmd

// Middleware wraps command execution (e.g. logging, typing indicator, metrics).
type Middleware func(ExecFunc) ExecFunc

// Apply applies middlewares in order; the first in the list is the outermost.
func Apply(exec ExecFunc, mws ...Middleware) ExecFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		exec = mws[i](exec)
	}
	return exec
}
