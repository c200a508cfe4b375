// Package realtime fans events out to room and session subscribers over
// Redis pub/sub. Events published with a retention are also buffered in the
// channel's history list so late subscribers can catch up.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"vanish/internal/domain"
	"vanish/internal/repository"
	apperrors "vanish/pkg/errors"
	"vanish/pkg/logger"
)

const channelPrefix = "realtime:%s"

type Broker struct {
	rdb         *redis.Client
	historySize int64
	log         logger.Logger
}

func NewBroker(rdb *redis.Client, historySize int64, log logger.Logger) *Broker {
	return &Broker{
		rdb:         rdb,
		historySize: historySize,
		log:         log,
	}
}

func pubsubChannel(channel string) string {
	return fmt.Sprintf(channelPrefix, channel)
}

func (b *Broker) Publish(ctx context.Context, channel, name string, payload interface{}, retain time.Duration) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", name, err)
	}

	event := &domain.Event{
		ID:        uuid.NewString(),
		Channel:   channel,
		Name:      name,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = b.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		if retain > 0 {
			key := repository.ChannelHistoryKey(channel)
			pipe.RPush(ctx, key, eventJSON)
			if b.historySize > 0 {
				pipe.LTrim(ctx, key, -b.historySize, -1)
			}
			pipe.PExpire(ctx, key, retain)
		}
		pipe.Publish(ctx, pubsubChannel(channel), eventJSON)
		return nil
	})
	if err != nil {
		b.log.Error("Failed to publish event", "error", err, "channel", channel, "event", name)
		return apperrors.StoreUnavailable(err)
	}

	return nil
}

// History returns the buffered events of a channel, oldest first.
func (b *Broker) History(ctx context.Context, channel string) ([]*domain.Event, error) {
	raw, err := b.rdb.LRange(ctx, repository.ChannelHistoryKey(channel), 0, -1).Result()
	if err != nil {
		b.log.Error("Failed to read channel history", "error", err, "channel", channel)
		return nil, apperrors.StoreUnavailable(err)
	}

	events := make([]*domain.Event, 0, len(raw))
	for _, item := range raw {
		var event domain.Event
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			b.log.Warn("Failed to unmarshal buffered event", "error", err, "channel", channel)
			continue
		}
		events = append(events, &event)
	}
	return events, nil
}

// Subscription delivers live events of one channel until closed.
type Subscription struct {
	pubsub    *redis.PubSub
	events    chan *domain.Event
	done      chan struct{}
	closeOnce sync.Once
}

// Subscribe returns once Redis has confirmed the subscription, so events
// published after Subscribe returns are never missed.
func (b *Broker) Subscribe(ctx context.Context, channel string) (*Subscription, error) {
	pubsub := b.rdb.Subscribe(ctx, pubsubChannel(channel))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		b.log.Error("Failed to subscribe", "error", err, "channel", channel)
		return nil, apperrors.StoreUnavailable(err)
	}

	sub := &Subscription{
		pubsub: pubsub,
		events: make(chan *domain.Event, 64),
		done:   make(chan struct{}),
	}
	go sub.pump(b.log, channel)

	return sub, nil
}

func (s *Subscription) pump(log logger.Logger, channel string) {
	defer close(s.events)

	for msg := range s.pubsub.Channel() {
		var event domain.Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Warn("Failed to unmarshal live event", "error", err, "channel", channel)
			continue
		}
		select {
		case s.events <- &event:
		case <-s.done:
			return
		}
	}
}

// Events is closed after Close.
func (s *Subscription) Events() <-chan *domain.Event {
	return s.events
}

func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}
