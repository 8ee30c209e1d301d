package engine

// Callback receives the engine instance as sole context.
type Callback func(*Engine)

// Callback events, in firing order within one run.
const (
	OnValStart      = "on_val_start"
	OnValBatchStart = "on_val_batch_start"
	OnValBatchEnd   = "on_val_batch_end"
	OnValEnd        = "on_val_end"
)

// AddCallback appends a handler for the given event. Handlers run in
// registration order; a panicking handler is not isolated by the engine.
func (e *Engine) AddCallback(event string, cb Callback) {
	e.callbacks[event] = append(e.callbacks[event], cb)
}

func (e *Engine) runCallbacks(event string) {
	for _, cb := range e.callbacks[event] {
		cb(e)
	}
}
