package kafka

import (
	"context"

	"go.uber.org/atomic"
)

// KafkaAsyncProducerMock stands in for a producer in tests. Everything
// published, directly or through the channel given to Start, lands on
// PublishChannel.
type KafkaAsyncProducerMock struct {
	topic          string
	publishChannel chan *Message
	stopped        *atomic.Bool
}

func NewKafkaAsyncProducerMock(topic ...string) *KafkaAsyncProducerMock {
	m := &KafkaAsyncProducerMock{
		publishChannel: make(chan *Message, 100),
		stopped:        atomic.NewBool(false),
	}

	if len(topic) > 0 {
		m.topic = topic[0]
	}

	return m
}

func (c *KafkaAsyncProducerMock) Start(ctx context.Context, ch chan *Message) {
	if ch == nil {
		return
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				c.Publish(msg)
			}
		}
	}()
}

func (c *KafkaAsyncProducerMock) Stop() error {
	c.stopped.Store(true)
	return nil
}

// Stopped reports whether Stop has been called.
func (c *KafkaAsyncProducerMock) Stopped() bool {
	return c.stopped.Load()
}

func (c *KafkaAsyncProducerMock) BrokersURL() []string {
	return []string{"mock://" + c.topic}
}

// PublishChannel is where published messages end up.
func (c *KafkaAsyncProducerMock) PublishChannel() chan *Message {
	return c.publishChannel
}

func (c *KafkaAsyncProducerMock) Publish(msg *Message) {
	c.publishChannel <- msg
}
