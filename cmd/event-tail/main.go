package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/messaging/kafka"
)

// outboxEnvelope — конверт сообщения, публикуемого outbox worker-ом.
type outboxEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	var (
		brokersRaw string
		topic      string
		groupID    string
	)
	flag.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: PROCUREMENT_KAFKA_BROKERS)")
	flag.StringVar(&topic, "topic", kafka.TopicProcessEvents, "topic to tail")
	flag.StringVar(&groupID, "group", "procurement-event-tail", "consumer group id")
	flag.Parse()

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = os.Getenv("PROCUREMENT_KAFKA_BROKERS")
	}
	brokers := parseBrokers(brokersRaw)
	if len(brokers) == 0 {
		fail("kafka brokers are required (-brokers or PROCUREMENT_KAFKA_BROKERS)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer, err := kafka.NewConsumer(brokers, groupID, []string{topic}, printEvent)
	if err != nil {
		fail("create consumer: %v", err)
	}

	if err := consumer.Start(ctx); err != nil {
		fail("start consumer: %v", err)
	}

	<-ctx.Done()
	if err := consumer.Stop(); err != nil {
		log.WithError(err).Warn("consumer stopped with error")
	}
}

// printEvent печатает событие процесса в человекочитаемом виде.
func printEvent(_ context.Context, message *sarama.ConsumerMessage) error {
	var envelope outboxEnvelope
	if err := json.Unmarshal(message.Value, &envelope); err != nil {
		fmt.Printf("%s/%d@%d key=%s %s\n",
			message.Topic, message.Partition, message.Offset, string(message.Key), string(message.Value))
		return nil
	}

	fmt.Printf("%s %-28s request=%s payload=%s\n",
		envelope.PublishedAt.Format(time.RFC3339), envelope.EventType,
		envelope.AggregateID, string(envelope.Payload))
	return nil
}

func parseBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		broker := strings.TrimSpace(chunk)
		if broker == "" {
			continue
		}
		brokers = append(brokers, broker)
	}
	return brokers
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
