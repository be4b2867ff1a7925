// Package inmemorykafka is an in-process stand-in for a Kafka cluster. It
// implements sarama.AsyncProducer on top of a broker that keeps every
// message in memory.
package inmemorykafka

import (
	"context"
	"sync"

	"github.com/IBM/sarama"
	"github.com/bsv-blockchain/legacy-p2p/errors"
)

var errTxnNotSupported = errors.NewProcessingError("transactions not supported by the in-memory producer")

// Message is a stored record.
type Message struct {
	Topic  string
	Key    []byte
	Value  []byte
	Offset int64
}

type InMemoryBroker struct {
	topics map[string]*topic
	mu     sync.RWMutex
}

type topic struct {
	messages []*Message
	notify   []chan *Message
	mu       sync.RWMutex
}

func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		topics: make(map[string]*topic),
	}
}

func (b *InMemoryBroker) topic(name string) *topic {
	b.mu.RLock()
	t, ok := b.topics[name]
	b.mu.RUnlock()

	if ok {
		return t
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if t, ok = b.topics[name]; !ok {
		t = &topic{}
		b.topics[name] = t
	}

	return t
}

// Produce appends a message to topicName and hands it to every subscriber
// that has room for it.
func (b *InMemoryBroker) Produce(_ context.Context, topicName string, key []byte, value []byte) error {
	t := b.topic(topicName)

	t.mu.Lock()
	defer t.mu.Unlock()

	msg := &Message{
		Topic:  topicName,
		Key:    key,
		Value:  value,
		Offset: int64(len(t.messages)),
	}
	t.messages = append(t.messages, msg)

	for _, ch := range t.notify {
		select {
		case ch <- msg:
		default:
		}
	}

	return nil
}

// Messages returns a copy of everything produced to topicName so far.
func (b *InMemoryBroker) Messages(topicName string) []*Message {
	t := b.topic(topicName)

	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Message, len(t.messages))
	copy(out, t.messages)

	return out
}

// Subscribe returns a channel receiving messages produced from now on.
func (b *InMemoryBroker) Subscribe(topicName string, buffer int) <-chan *Message {
	t := b.topic(topicName)
	ch := make(chan *Message, buffer)

	t.mu.Lock()
	t.notify = append(t.notify, ch)
	t.mu.Unlock()

	return ch
}

func (b *InMemoryBroker) Topics() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	topics := make([]string, 0, len(b.topics))
	for name := range b.topics {
		topics = append(topics, name)
	}

	return topics
}

var (
	sharedBroker *InMemoryBroker
	brokerOnce   sync.Once
)

// GetSharedBroker returns the broker used by every "memory" scheme producer.
func GetSharedBroker() *InMemoryBroker {
	brokerOnce.Do(func() {
		sharedBroker = NewInMemoryBroker()
	})

	return sharedBroker
}

// InMemoryAsyncProducer implements sarama.AsyncProducer.
type InMemoryAsyncProducer struct {
	broker    *InMemoryBroker
	input     chan *sarama.ProducerMessage
	successes chan *sarama.ProducerMessage
	errors    chan *sarama.ProducerError
	close     chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ sarama.AsyncProducer = (*InMemoryAsyncProducer)(nil)

func NewInMemoryAsyncProducer(broker *InMemoryBroker, bufferSize int) *InMemoryAsyncProducer {
	if bufferSize <= 0 {
		bufferSize = 100
	}

	p := &InMemoryAsyncProducer{
		broker:    broker,
		input:     make(chan *sarama.ProducerMessage, bufferSize),
		successes: make(chan *sarama.ProducerMessage, bufferSize),
		errors:    make(chan *sarama.ProducerError, bufferSize),
		close:     make(chan struct{}),
	}

	p.wg.Add(1)

	go p.messageHandler()

	return p
}

func (p *InMemoryAsyncProducer) messageHandler() {
	defer p.wg.Done()

	for {
		select {
		case msg := <-p.input:
			p.produce(msg)
		case <-p.close:
			// flush what is already queued
			for {
				select {
				case msg := <-p.input:
					p.produce(msg)
				default:
					return
				}
			}
		}
	}
}

func (p *InMemoryAsyncProducer) produce(msg *sarama.ProducerMessage) {
	var (
		key []byte
		err error
	)

	if msg.Key != nil {
		if key, err = msg.Key.Encode(); err != nil {
			p.fail(msg, errors.NewProcessingError("failed to encode key", err))
			return
		}
	}

	value, err := msg.Value.Encode()
	if err != nil {
		p.fail(msg, errors.NewProcessingError("failed to encode value", err))
		return
	}

	if err = p.broker.Produce(context.Background(), msg.Topic, key, value); err != nil {
		p.fail(msg, err)
		return
	}

	select {
	case p.successes <- msg:
	default:
	}
}

func (p *InMemoryAsyncProducer) fail(msg *sarama.ProducerMessage, err error) {
	select {
	case p.errors <- &sarama.ProducerError{Msg: msg, Err: err}:
	default:
	}
}

func (p *InMemoryAsyncProducer) AsyncClose() {
	p.closeOnce.Do(func() { close(p.close) })
}

// Close stops the producer after flushing queued messages.
func (p *InMemoryAsyncProducer) Close() error {
	p.AsyncClose()
	p.wg.Wait()

	close(p.successes)
	close(p.errors)

	return nil
}

func (p *InMemoryAsyncProducer) Input() chan<- *sarama.ProducerMessage {
	return p.input
}

func (p *InMemoryAsyncProducer) Successes() <-chan *sarama.ProducerMessage {
	return p.successes
}

func (p *InMemoryAsyncProducer) Errors() <-chan *sarama.ProducerError {
	return p.errors
}

func (p *InMemoryAsyncProducer) IsTransactional() bool {
	return false
}

func (p *InMemoryAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnFlagReady
}

func (p *InMemoryAsyncProducer) BeginTxn() error {
	return errTxnNotSupported
}

func (p *InMemoryAsyncProducer) CommitTxn() error {
	return errTxnNotSupported
}

func (p *InMemoryAsyncProducer) AbortTxn() error {
	return errTxnNotSupported
}

func (p *InMemoryAsyncProducer) AddMessageToTxn(*sarama.ConsumerMessage, string, *string) error {
	return errTxnNotSupported
}

func (p *InMemoryAsyncProducer) AddOffsetsToTxn(map[string][]*sarama.PartitionOffsetMetadata, string) error {
	return errTxnNotSupported
}
