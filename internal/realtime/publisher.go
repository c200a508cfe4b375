//go:generate go run go.uber.org/mock/mockgen -source=publisher.go -destination=../mocks/mock_publisher.go -package=mocks
package realtime

import (
	"context"
	"time"
)

// Publisher emits events on a channel. retain > 0 also appends the event to
// the channel history and caps the history lifetime to retain.
type Publisher interface {
	Publish(ctx context.Context, channel, name string, payload interface{}, retain time.Duration) error
}
