package insertloop

import "go.uber.org/zap"

// ErrorHandler receives failures raised off the audio thread: device
// enumeration errors, queue op failures, adapter I/O problems. The routing
// core itself never reports errors: its boundary conditions degrade to
// defined no-op behavior instead.
type ErrorHandler interface {
	HandleError(error)
}

// LogErrorHandler reports errors through a zap logger.
type LogErrorHandler struct {
	logger *zap.Logger
}

// NewLogErrorHandler creates a handler over the given logger. A nil logger
// falls back to zap.NewNop.
func NewLogErrorHandler(logger *zap.Logger) *LogErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogErrorHandler{logger: logger}
}

// HandleError implements ErrorHandler.
func (h *LogErrorHandler) HandleError(err error) {
	h.logger.Error("chain error", zap.Error(err))
}

// PanicErrorHandler panics on any error (useful for development)
type PanicErrorHandler struct{}

// HandleError implements ErrorHandler interface by panicking
func (h *PanicErrorHandler) HandleError(err error) {
	panic("chain error: " + err.Error())
}
