package facet

import (
	"time"

	"go.uber.org/zap"
)

// Transaction trigger labels carried by the debug channel.
const (
	triggerPatch     = "patch"
	triggerMutation  = "mutation"
	triggerOperation = "operation:"
)

// emitDebug writes the structured per-transaction record when the
// definition enables debugging. The record carries everything needed to
// replay the transaction by hand: trigger, pre-state, net changes,
// post-state.
func (c *Container) emitDebug(tx *transaction, after map[string]any, delta Delta) {
	if !c.def.Debug {
		return
	}
	c.rt.logger.Info("transaction closed",
		zap.String("container", c.id),
		zap.String("txn", tx.id),
		zap.String("trigger", tx.trigger),
		zap.Any("before", tx.snapshot),
		zap.Any("changes", delta),
		zap.Any("after", after),
		zap.Time("timestamp", time.Now()),
	)
}
