package kafka

import (
	"github.com/IBM/sarama"
)

// InitKafkaProducer builds the sync producer used to fan message-sent events
// out to other service instances.
func InitKafkaProducer(brokers []string, _ string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner // same conversation, same partition
	config.Version = sarama.V2_0_0_0
	config.ClientID = "social-graph-service"
	config.Producer.MaxMessageBytes = 1000000

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return producer, nil
}
