package cmd

// Middleware wraps a callback (e.g. logging, metrics, cooldowns).
type Middleware func(name string, next Callback) Callback

// Apply applies middlewares in order; the first in the list is the outermost.
func Apply(name string, c Callback, mws ...Middleware) Callback {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](name, c)
	}
	return c
}
