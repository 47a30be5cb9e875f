package readmodel

import (
	"context"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/logger"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/realtime"
)

// Listen folds realtime message inserts into the cache until ctx ends or the subscription closes.
// It closes sub before returning.
func (c *Cache) Listen(ctx context.Context, sub *realtime.Subscription, logg *logger.Logger) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			if c.AppendMessage(msg) && logg != nil {
				logg.Debug(logg.WithFields(ctx, map[string]any{
					"message_id":  msg.ID.String(),
					"contract_id": msg.ContractID.String(),
				}), "realtime message cached")
			}
		}
	}
}
