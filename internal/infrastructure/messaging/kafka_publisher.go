package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

var _ inventory.AlertPublisher = (*KafkaPublisher)(nil)

// MessageWriter subconjunto de *kafka.Writer que usa el publicador.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publica las alertas de bajo stock como JSON, con clave bodega/ítem para que
// las transiciones de un mismo par queden en la misma partición y en orden.
type KafkaPublisher struct {
	writer     MessageWriter
	propagator propagation.TextMapPropagator
}

// NewKafkaWriter construye el writer para los brokers y el tópico.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		BatchSize:              100,
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaPublisher construye el publicador sobre un writer.
func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, propagator: propagation.TraceContext{}}
}

type alertEvent struct {
	Type string `json:"type"`
	inventory.LowStockAlert
}

func (p *KafkaPublisher) Publish(ctx context.Context, a inventory.LowStockAlert) error {
	ev := alertEvent{Type: "stock.recovered", LowStockAlert: a}
	if a.Low {
		ev.Type = "stock.low"
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("serializar alerta: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(a.WarehouseID + "/" + a.ItemID),
		Value: payload,
		Time:  a.DetectedAt,
	}
	p.propagator.Inject(ctx, headerCarrier{msg: &msg})
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	return nil
}

// Close vacía el buffer del writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// headerCarrier adapta los headers del mensaje a propagation.TextMapCarrier.
type headerCarrier struct {
	msg *kafka.Message
}

func (c headerCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}
