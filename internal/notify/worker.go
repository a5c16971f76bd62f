package notify

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"clinicq/queue-service/internal/models"
	"clinicq/queue-service/internal/store"

	"github.com/google/uuid"
)

const offsetConsumer = "notify"

// Store is the slice of the booking store the worker needs.
type Store interface {
	ListOutboxEvents(ctx context.Context, after time.Time, limit int) ([]store.OutboxEvent, error)
	GetConsumerOffset(ctx context.Context, consumer string) (time.Time, error)
	UpdateConsumerOffset(ctx context.Context, consumer string, value time.Time) error
	ListActiveBookings(ctx context.Context, doctorID, date string) ([]models.Booking, error)
	InsertNotification(ctx context.Context, n store.Notification) error
	MarkNotificationSent(ctx context.Context, notificationID string) error
	MarkNotificationFailed(ctx context.Context, notificationID, lastError string) error
}

// Sender delivers one message; failures are recorded, never propagated to
// the booking operation that produced the event.
type Sender func(channel, recipient, body string) error

type Worker struct {
	store     Store
	batchSize int
	provider  string
	send      Sender
}

type Config struct {
	BatchSize int
	Provider  string
	Send      Sender
}

type payloadData map[string]any

func New(st Store, cfg Config) *Worker {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 50
	}
	w := &Worker{store: st, batchSize: batch, provider: cfg.Provider}
	w.send = cfg.Send
	if w.send == nil {
		w.send = w.logSend
	}
	return w
}

func (w *Worker) Run(ctx context.Context) error {
	last, err := w.store.GetConsumerOffset(ctx, offsetConsumer)
	if err != nil {
		return err
	}

	events, err := w.store.ListOutboxEvents(ctx, last, w.batchSize)
	if err != nil {
		return err
	}

	for _, event := range events {
		if err := w.processEvent(ctx, event); err != nil {
			log.Printf("notify process error: %v", err)
		}
		last = event.CreatedAt
	}

	if !last.IsZero() {
		if err := w.store.UpdateConsumerOffset(ctx, offsetConsumer, last); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) processEvent(ctx context.Context, event store.OutboxEvent) error {
	payload := payloadData{}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}

	switch event.Type {
	case "booking.emergency":
		// Everyone else in the doctor's queue learns about the likely delay.
		return w.notifyScope(ctx, payload, str(payload, "booking_id"), emergencyBody())
	case "queue.delayed":
		return w.notifyScope(ctx, payload, "", delayBody(str(payload, "reason")))
	case "booking.called":
		phone := str(payload, "patient_phone")
		if phone == "" {
			return nil
		}
		return w.deliver(ctx, str(payload, "booking_id"), phone, calledBody(intVal(payload, "queue_number")))
	default:
		return nil
	}
}

func (w *Worker) notifyScope(ctx context.Context, payload payloadData, excludeBookingID, body string) error {
	doctorID := str(payload, "doctor_id")
	date := str(payload, "booking_date")
	if doctorID == "" || date == "" {
		return nil
	}
	active, err := w.store.ListActiveBookings(ctx, doctorID, date)
	if err != nil {
		return err
	}
	for _, booking := range active {
		if booking.BookingID == excludeBookingID {
			continue
		}
		if booking.Patient.Phone == "" {
			continue
		}
		if err := w.deliver(ctx, booking.BookingID, booking.Patient.Phone, body); err != nil {
			log.Printf("notify booking=%s: %v", booking.BookingID, err)
		}
	}
	return nil
}

func (w *Worker) deliver(ctx context.Context, bookingID, recipient, body string) error {
	notification := store.Notification{
		NotificationID: uuid.NewString(),
		BookingID:      bookingID,
		Recipient:      recipient,
		Channel:        "sms",
		Body:           body,
		Status:         "pending",
		Attempts:       1,
	}
	if err := w.store.InsertNotification(ctx, notification); err != nil {
		return err
	}
	if err := w.send("sms", recipient, body); err != nil {
		return w.store.MarkNotificationFailed(ctx, notification.NotificationID, err.Error())
	}
	return w.store.MarkNotificationSent(ctx, notification.NotificationID)
}

func (w *Worker) logSend(channel, recipient, body string) error {
	log.Printf("send %s via %s to %s: %s", channel, w.provider, recipient, body)
	return nil
}

func emergencyBody() string {
	return "An emergency patient was admitted ahead of you. Expect a delay."
}

func delayBody(reason string) string {
	body := "Your doctor is running late."
	if reason != "" {
		body += " Reason: " + reason
	}
	return body
}

func calledBody(number int) string {
	if number == models.EmergencyNumber {
		return "It is your turn now. Please proceed immediately."
	}
	return "It is your turn now. Your number " + strconv.Itoa(number) + " is being served."
}

func str(payload payloadData, key string) string {
	if value, ok := payload[key]; ok {
		if text, ok := value.(string); ok {
			return text
		}
	}
	return ""
}

func intVal(payload payloadData, key string) int {
	if value, ok := payload[key]; ok {
		if number, ok := value.(float64); ok {
			return int(number)
		}
	}
	return 0
}

func Start(ctx context.Context, interval time.Duration, w *Worker) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Run(ctx); err != nil {
				log.Printf("notify worker error: %v", err)
			}
		}
	}
}
