package kafka

import (
	"context"
	"fmt"
	"sort"

	"github.com/Shopify/sarama"
	"github.com/questx-lab/luckydraw/pkg/pubsub"
)

type publisher struct {
	producer sarama.SyncProducer
}

// NewPublisher creates a synchronous producer. Messages are partitioned by key
// and acknowledged by all in-sync replicas.
func NewPublisher(clientID string, brokerAddrs []string) (*publisher, error) {
	config := sarama.NewConfig()
	config.ClientID = clientID
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Version = sarama.V2_1_0_0
	config.Producer.Idempotent = true
	config.Producer.Retry.Max = 3
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokerAddrs, config)
	if err != nil {
		return nil, err
	}

	return &publisher{producer: producer}, nil
}

func (p *publisher) Stop(ctx context.Context) error {
	return p.producer.Close()
}

func (p *publisher) Publish(ctx context.Context, topic string, pack *pubsub.Pack) error {
	m := &sarama.ProducerMessage{
		Topic:   topic,
		Key:     sarama.ByteEncoder(pack.Key),
		Value:   sarama.ByteEncoder(pack.Msg),
		Headers: recordHeaders(pack.Headers),
	}

	if _, _, err := p.producer.SendMessage(m); err != nil {
		return fmt.Errorf("cannot send message to %s: %w", topic, err)
	}

	return nil
}

func recordHeaders(headers map[string]string) []sarama.RecordHeader {
	if len(headers) == 0 {
		return nil
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]sarama.RecordHeader, 0, len(keys))
	for _, k := range keys {
		records = append(records, sarama.RecordHeader{Key: []byte(k), Value: []byte(headers[k])})
	}

	return records
}
