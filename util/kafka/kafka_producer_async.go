package kafka

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/bsv-blockchain/legacy-p2p/errors"
	"github.com/bsv-blockchain/legacy-p2p/ulogger"
	inmemorykafka "github.com/bsv-blockchain/legacy-p2p/util/kafka/in_memory_kafka"
	"go.uber.org/atomic"
)

type KafkaAsyncProducer struct {
	Config            KafkaProducerConfig
	Producer          sarama.AsyncProducer
	publishChannel    chan *Message
	closed            atomic.Bool
	cancel            context.CancelFunc
	wg                sync.WaitGroup
	mu                sync.RWMutex
	lastMessageStatus MessageStatus
}

var _ KafkaAsyncProducerI = (*KafkaAsyncProducer)(nil)

// NewKafkaAsyncProducerFromURL creates a producer for the topic named in kafkaURL.
func NewKafkaAsyncProducerFromURL(logger ulogger.Logger, kafkaURL *url.URL) (*KafkaAsyncProducer, error) {
	cfg, err := NewKafkaProducerConfigFromURL(logger, kafkaURL)
	if err != nil {
		return nil, err
	}

	return NewKafkaAsyncProducer(logger, cfg)
}

// NewKafkaAsyncProducer creates the topic if it does not exist yet and connects
// an async producer to it.
func NewKafkaAsyncProducer(logger ulogger.Logger, cfg KafkaProducerConfig) (*KafkaAsyncProducer, error) {
	cfg.Logger = logger

	if cfg.URL != nil && cfg.URL.Scheme == memoryScheme {
		logger.Infof("[kafka] using in-memory producer for topic %s", cfg.Topic)

		return &KafkaAsyncProducer{
			Config:   cfg,
			Producer: inmemorykafka.NewInMemoryAsyncProducer(inmemorykafka.GetSharedBroker(), 0),
		}, nil
	}

	logger.Debugf("[kafka] starting async producer for topic %s on %v", cfg.Topic, cfg.BrokersURL)

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Flush.Bytes = cfg.FlushBytes
	config.Producer.Flush.Messages = cfg.FlushMessages
	config.Producer.Flush.Frequency = cfg.FlushFrequency

	if err := createTopic(cfg, config); err != nil {
		return nil, err
	}

	producer, err := sarama.NewAsyncProducer(cfg.BrokersURL, config)
	if err != nil {
		return nil, errors.NewServiceError("failed to create kafka producer for %s", cfg.Topic, err)
	}

	return &KafkaAsyncProducer{
		Config:   cfg,
		Producer: producer,
	}, nil
}

func createTopic(cfg KafkaProducerConfig, config *sarama.Config) error {
	clusterAdmin, err := sarama.NewClusterAdmin(cfg.BrokersURL, config)
	if err != nil {
		return errors.NewConfigurationError("error while creating cluster admin", err)
	}

	defer func() {
		_ = clusterAdmin.Close()
	}()

	retention := cfg.RetentionPeriodMillis
	segmentBytes := cfg.SegmentBytes

	err = clusterAdmin.CreateTopic(cfg.Topic, &sarama.TopicDetail{
		NumPartitions:     cfg.Partitions,
		ReplicationFactor: cfg.ReplicationFactor,
		ConfigEntries: map[string]*string{
			"retention.ms":        &retention,
			"delete.retention.ms": &retention,
			"segment.ms":          &retention,
			"segment.bytes":       &segmentBytes,
		},
	}, false)
	if err != nil && !errors.Is(err, sarama.ErrTopicAlreadyExists) {
		return errors.NewProcessingError("unable to create topic %s", cfg.Topic, err)
	}

	return nil
}

// Start forwards everything sent on ch to the topic until ctx is done or Stop
// is called.
func (c *KafkaAsyncProducer) Start(ctx context.Context, ch chan *Message) {
	if c == nil {
		return
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.publishChannel = ch

	go func() {
		for range c.Producer.Successes() {
			c.setStatus(MessageStatus{Success: true, Time: time.Now()})
		}
	}()

	go func() {
		for err := range c.Producer.Errors() {
			c.Config.Logger.Errorf("[kafka] failed to deliver message to %s: %v", c.Config.Topic, err)
			c.setStatus(MessageStatus{Success: false, Error: err, Time: time.Now()})
		}
	}()

	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-ch:
				c.Producer.Input() <- &sarama.ProducerMessage{
					Topic: c.Config.Topic,
					Key:   sarama.ByteEncoder(msg.Key),
					Value: sarama.ByteEncoder(msg.Value),
				}
			}
		}
	}()
}

// Publish queues msg. It blocks when the publish channel is full.
func (c *KafkaAsyncProducer) Publish(msg *Message) {
	c.publishChannel <- msg
}

func (c *KafkaAsyncProducer) Stop() error {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}

	c.wg.Wait()

	if c.Producer == nil {
		return nil
	}

	if err := c.Producer.Close(); err != nil {
		return errors.NewServiceError("failed to close kafka producer for %s", c.Config.Topic, err)
	}

	return nil
}

func (c *KafkaAsyncProducer) BrokersURL() []string {
	if c == nil {
		return nil
	}

	return c.Config.BrokersURL
}

func (c *KafkaAsyncProducer) LastMessageStatus() MessageStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastMessageStatus
}

func (c *KafkaAsyncProducer) setStatus(status MessageStatus) {
	c.mu.Lock()
	c.lastMessageStatus = status
	c.mu.Unlock()
}
