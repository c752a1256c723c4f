package kafka

import (
	"log"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/ticketbay/tb-marketplace/config"
)

// NewProducer builds a confluent kafka producer from the application config.
func NewProducer() *kafka.Producer {
	c := config.Get().Kafka

	cm := &kafka.ConfigMap{
		"bootstrap.servers": c.BootstrapServers,
		"acks":              "all",
	}

	if c.SASLUsername != "" {
		cm.SetKey("security.protocol", "SASL_SSL")
		cm.SetKey("sasl.mechanisms", "PLAIN")
		cm.SetKey("sasl.username", c.SASLUsername)
		cm.SetKey("sasl.password", c.SASLPassword)
	}

	p, err := kafka.NewProducer(cm)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}

	return p
}
