// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/todaywatch/internal/logging"
)

// Bus owns the publisher and subscriber of the selected backend and the
// embedded NATS server when one was started.
type Bus struct {
	backend    string
	publisher  message.Publisher
	subscriber message.Subscriber
	server     *EmbeddedServer
	logger     watermill.LoggerAdapter

	closeOnce sync.Once
	closeErr  error
}

// NewWatermillLogger returns a Watermill logger writing through zerolog.
func NewWatermillLogger() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.NewComponentSlogLogger("eventprocessor"))
}

// NewBus creates the backend described by cfg.
func NewBus(ctx context.Context, cfg *BusConfig, logger watermill.LoggerAdapter) (*Bus, error) {
	if logger == nil {
		logger = NewWatermillLogger()
	}

	switch cfg.Backend {
	case "", BackendGoChannel:
		ch := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
		}, logger)
		return &Bus{
			backend:    BackendGoChannel,
			publisher:  ch,
			subscriber: ch,
			logger:     logger,
		}, nil
	case BackendNATS:
		return newNATSBus(ctx, &cfg.NATS, logger)
	default:
		return nil, fmt.Errorf("unknown event backend %q", cfg.Backend)
	}
}

func newNATSBus(ctx context.Context, cfg *NATSConfig, logger watermill.LoggerAdapter) (*Bus, error) {
	b := &Bus{backend: BackendNATS, logger: logger}

	url := cfg.URL
	if cfg.EmbeddedServer {
		srv, err := NewEmbeddedServer(cfg)
		if err != nil {
			return nil, err
		}
		b.server = srv
		url = srv.ClientURL()
	}

	if err := ensureStream(ctx, url, cfg); err != nil {
		_ = b.Close()
		return nil, err
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}
	b.publisher = pub

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     30 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			AckAsync:      false,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.BindStream(cfg.StreamName),
				natsgo.MaxDeliver(cfg.MaxDeliver),
				natsgo.AckWait(cfg.AckWaitTimeout),
				natsgo.DeliverAll(),
			},
			DurablePrefix:     cfg.DurableName,
			DurableCalculator: durableName,
		},
	}, logger)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}
	b.subscriber = sub

	return b, nil
}

// durableName builds one durable consumer per topic. JetStream consumer
// names cannot contain dots.
func durableName(prefix, topic string) string {
	name := strings.ReplaceAll(topic, ".", "_")
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}

// ensureStream creates or updates the stream holding every ingestion topic.
func ensureStream(ctx context.Context, url string, cfg *NATSConfig) error {
	nc, err := natsgo.Connect(url)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       cfg.StreamName,
		Subjects:   []string{topicWildcard},
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     cfg.MaxAge,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", cfg.StreamName, err)
	}
	return nil
}

// Backend returns the backend name.
func (b *Bus) Backend() string {
	return b.backend
}

// Publisher returns the raw Watermill publisher.
func (b *Bus) Publisher() message.Publisher {
	return b.publisher
}

// Subscriber returns the raw Watermill subscriber.
func (b *Bus) Subscriber() message.Subscriber {
	return b.subscriber
}

// Server returns the embedded NATS server, or nil.
func (b *Bus) Server() *EmbeddedServer {
	return b.server
}

// Close shuts down the publisher, subscriber and embedded server in
// that order.
func (b *Bus) Close() error {
	b.closeOnce.Do(func() {
		var errs []error
		if b.publisher != nil {
			if err := b.publisher.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close publisher: %w", err))
			}
		}
		// gochannel uses one value for both sides
		if b.subscriber != nil && b.backend != BackendGoChannel {
			if err := b.subscriber.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close subscriber: %w", err))
			}
		}
		if b.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := b.server.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown NATS server: %w", err))
			}
			cancel()
		}
		b.closeErr = errors.Join(errs...)
	})
	return b.closeErr
}
