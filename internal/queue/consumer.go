package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AssignmentLogFile is the file, inside the log directory, that consumed
// events are appended to.
const AssignmentLogFile = "assignment.log"

// StartAssignmentConsumer connects to RabbitMQ, declares the tables.assigned
// queue (durable) and appends every event to <logDir>/assignment.log as a
// single line. It reconnects with exponential backoff and returns only when
// ctx is cancelled.
func StartAssignmentConsumer(ctx context.Context, url, logDir string) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("assignment-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, logDir)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("assignment-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logDir string) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("assignment-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(TablesAssignedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(TablesAssignedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleMessage(logDir, d.Body); err != nil {
				log.Printf("assignment-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one event and appends it to the assignment log.
func HandleMessage(logDir string, body []byte) error {
	var ev TablesAssignedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, AssignmentLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders an event as one newline-terminated log line.
func FormatLine(ev TablesAssignedEvent) string {
	tables := fmt.Sprintf("[%s]", strings.Join(ev.TableNames, ","))
	forced := "-"
	if ev.ForcedTableID != nil {
		forced = fmt.Sprint(*ev.ForcedTableID)
	}
	return fmt.Sprintf("[%s] Tables assigned | reservation_id=%s | name=%q | date=%s | category=%s | window=%s-%s | persons=%d | forced=%s | tables=%s\n",
		ev.AssignedAt, ev.ReservationID, ev.Name, ev.Date, ev.Category, ev.StartTime, ev.EndTime, ev.NumberOfPersons, forced, tables)
}
