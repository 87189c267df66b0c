package reducer

import (
	"log/slog"

	"github.com/roach88/entcache/internal/cache"
	"github.com/roach88/entcache/internal/ir"
)

// LoggingMetaReducer logs every action type at debug level before calling
// through. Entity error actions are logged at warn level. A nil logger uses
// slog.Default.
func LoggingMetaReducer(logger *slog.Logger) MetaReducer {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Reducer) Reducer {
		return func(c *cache.Cache, a ir.Action) *cache.Cache {
			if ea, ok := ir.AsEntityAction(a); ok && ea.IsError() {
				msg := ""
				if ea.Payload.Error != nil {
					msg = ea.Payload.Error.Message
				}
				logger.Warn("entity action failed",
					"type", ea.Type(),
					"entity", ea.EntityName(),
					"op", ea.Op(),
					"correlation_id", ea.Payload.CorrelationID,
					"error", msg,
				)
			} else {
				logger.Debug("reduce", "type", a.Type())
			}
			return next(c, a)
		}
	}
}
