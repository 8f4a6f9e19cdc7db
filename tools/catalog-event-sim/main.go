// catalog-event-sim publishes fake catalog events to Kafka so the booking
// service's replica tables can be seeded during local development without a
// running catalog service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

func main() {
	var (
		brokers  = flag.String("brokers", getenv("KAFKA_BROKERS", "localhost:9092"), "comma-separated kafka brokers")
		kind     = flag.String("kind", "service", "entity to emit: service, variant, customer, window")
		tenant   = flag.String("tenant-id", getenv("TENANT_ID", ""), "tenant id")
		id       = flag.String("id", "", "entity id (random uuid when empty)")
		service  = flag.String("service-id", "", "owning service id (variant and window)")
		name     = flag.String("name", "Demo", "display name")
		duration = flag.Int("duration", 60, "duration in minutes (service and variant)")
		weekday  = flag.Int("weekday", 2, "window weekday, Monday=0 (window only)")
		capacity = flag.Int("capacity", 1, "window capacity (window only)")
		tz       = flag.String("timezone", "UTC", "window timezone (window only)")
	)
	flag.Parse()

	if strings.TrimSpace(*tenant) == "" {
		fatal("TENANT_ID is required")
	}
	entityID := *id
	if entityID == "" {
		entityID = uuid.NewString()
	}

	topic, payload, err := buildEvent(*kind, entityID, *tenant, *service, *name, *duration, *weekday, *capacity, *tz)
	if err != nil {
		fatal(err.Error())
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(strings.Split(*brokers, ",")...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
	defer writer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entityID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(uuid.NewString())},
			{Key: "event_type", Value: []byte(topic)},
		},
	})
	if err != nil {
		fatal(err.Error())
	}
	fmt.Printf("published %s id=%s\n", topic, entityID)
}

func buildEvent(kind, id, tenantID, serviceID, name string, duration, weekday, capacity int, tz string) (string, []byte, error) {
	switch kind {
	case "service":
		payload, err := json.Marshal(map[string]any{
			"service_id":       id,
			"tenant_id":        tenantID,
			"name":             name,
			"active":           true,
			"duration_minutes": duration,
			"price_cents":      0,
		})
		return "catalog.service.upserted.v1", payload, err
	case "variant":
		if serviceID == "" {
			return "", nil, fmt.Errorf("variant requires -service-id")
		}
		payload, err := json.Marshal(map[string]any{
			"variant_id":       id,
			"service_id":       serviceID,
			"name":             name,
			"duration_minutes": duration,
			"price_cents":      0,
		})
		return "catalog.variant.upserted.v1", payload, err
	case "customer":
		payload, err := json.Marshal(map[string]any{
			"customer_id": id,
			"tenant_id":   tenantID,
			"name":        name,
			"phone":       "",
		})
		return "catalog.customer.upserted.v1", payload, err
	case "window":
		if serviceID == "" {
			return "", nil, fmt.Errorf("window requires -service-id")
		}
		payload, err := json.Marshal(map[string]any{
			"window_id":    id,
			"tenant_id":    tenantID,
			"service_id":   serviceID,
			"weekday":      weekday,
			"start_minute": 9 * 60,
			"end_minute":   17 * 60,
			"capacity":     capacity,
			"timezone":     tz,
		})
		return "catalog.window.upserted.v1", payload, err
	default:
		return "", nil, fmt.Errorf("unsupported kind: %s", kind)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
