package impressions

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/kevicsalazar/appactions-kotlin/internal/events"
)

// EventTypeSliceViewed labels the impression events this package produces.
const EventTypeSliceViewed = "slice.viewed"

// sliceViewedSchema is registered once per process with the schema registry.
const sliceViewedSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "SliceViewed",
  "type": "object",
  "required": ["slice_uri", "tenant_id", "viewed_at"],
  "properties": {
    "slice_uri": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "activity_type": {"type": "string"},
    "state": {"type": "string"},
    "viewed_at": {"type": "string", "format": "date-time"}
  }
}`

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

type schemaRegistrar interface {
	EnsureSchema(context.Context, string, string) (int, error)
}

// Emitter frames slice.viewed payloads Confluent-style (magic byte plus
// schema id) and writes them to the impressions topic.
type Emitter struct {
	producer messageWriter
	registry schemaRegistrar
	topic    string
	logger   *log.Logger

	mu       sync.Mutex
	schemaID int
	resolved bool
}

// NewEmitter constructs an Emitter targeting the given topic.
func NewEmitter(producer messageWriter, registry schemaRegistrar, topic string, logger *log.Logger) *Emitter {
	if logger == nil {
		logger = log.New(log.Writer(), "[impressions] ", log.LstdFlags)
	}
	return &Emitter{
		producer: producer,
		registry: registry,
		topic:    topic,
		logger:   logger,
	}
}

// Subject returns the schema registry subject for the impressions topic.
func (e *Emitter) Subject() string {
	return e.topic + "-value"
}

// Emit publishes one impression. The schema id is resolved on first use and
// cached for the lifetime of the emitter.
func (e *Emitter) Emit(ctx context.Context, viewed events.SliceViewed) error {
	schemaID, err := e.ensureSchema(ctx)
	if err != nil {
		return fmt.Errorf("resolve schema: %w", err)
	}

	body, err := json.Marshal(viewed)
	if err != nil {
		return err
	}

	value := make([]byte, 5+len(body))
	value[0] = 0
	binary.BigEndian.PutUint32(value[1:5], uint32(schemaID))
	copy(value[5:], body)

	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%s:%s", viewed.TenantID, viewed.UserID)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeSliceViewed)},
			{Key: "tenant_id", Value: []byte(viewed.TenantID)},
			{Key: "schema_subject", Value: []byte(e.Subject())},
		},
	}

	return e.producer.WriteMessages(ctx, e.topic, msg)
}

// EmitAsync fires the impression on a background goroutine; failures are
// logged and dropped so a slow broker never delays a slice bind.
func (e *Emitter) EmitAsync(ctx context.Context, viewed events.SliceViewed) {
	go func() {
		if err := e.Emit(ctx, viewed); err != nil {
			e.logger.Printf("emit failed (uri=%s): %v", viewed.SliceURI, err)
		}
	}()
}

func (e *Emitter) ensureSchema(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.resolved {
		return e.schemaID, nil
	}

	id, err := e.registry.EnsureSchema(ctx, e.Subject(), sliceViewedSchema)
	if err != nil {
		return 0, err
	}
	e.schemaID = id
	e.resolved = true
	return id, nil
}
