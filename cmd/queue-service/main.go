package main

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"clinicq/queue-service/internal/config"
	"clinicq/queue-service/internal/httpapi"
	"clinicq/queue-service/internal/hub"
	"clinicq/queue-service/internal/models"
	"clinicq/queue-service/internal/notify"
	"clinicq/queue-service/internal/reconciler"
	"clinicq/queue-service/internal/store/postgres"
	"clinicq/queue-service/internal/telemetry"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const realtimeConsumer = "realtime"

type eventEnvelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func main() {
	cfg := config.Load()
	shutdownTelemetry := telemetry.Setup("queue-service")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	store := postgres.NewStore(pool)
	handler := httpapi.NewHandler(store)
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:     cfg.RateLimitPerMinute,
		IPBurst:         cfg.RateLimitBurst,
		CenterPerMinute: cfg.CenterRateLimitPerMinute,
		CenterBurst:     cfg.CenterRateLimitBurst,
	})
	h := hub.New()

	routes := httpapi.AuthMiddleware(store, handler.Routes())
	mux := http.NewServeMux()
	mux.Handle("/metrics", expvar.Handler())
	mux.Handle("/healthz", routes)
	mux.Handle("/api/", routes)
	mux.Handle("/realtime/", newRealtimeHandler(store, h, cfg.ReconcileInterval))

	otelHandler := otelhttp.NewHandler(httpapi.LoggingMiddleware(limiter.Middleware(mux)), "queue-service")
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	go func() {
		log.Printf("queue-service listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	worker := notify.New(store, notify.Config{
		BatchSize: cfg.NotifyBatchSize,
		Provider:  os.Getenv("NOTIFY_PROVIDER"),
	})
	go notify.Start(rootCtx, cfg.NotifyInterval, worker)

	go runRealtimePoller(rootCtx, store, h, cfg.RealtimePollInterval, cfg.RealtimeBatchSize)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancelRoot()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// runRealtimePoller tails the outbox and fans events out to connected
// clients. A CAS guard keeps slow batches from overlapping.
func runRealtimePoller(ctx context.Context, store *postgres.Store, h *hub.Hub, interval time.Duration, batchSize int) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	offset, err := store.GetConsumerOffset(ctx, realtimeConsumer)
	if err != nil {
		log.Printf("load offset error: %v", err)
	}
	if offset.IsZero() {
		offset = time.Unix(0, 0).UTC()
	}

	var running int32
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !atomic.CompareAndSwapInt32(&running, 0, 1) {
			continue
		}
		pollCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		events, err := store.ListOutboxEvents(pollCtx, offset, batchSize)
		if err != nil {
			log.Printf("list events error: %v", err)
		}
		for _, event := range events {
			offset = event.CreatedAt
			meta := extractMeta(event.Payload)
			meta.CenterID = event.CenterID
			env := eventEnvelope{Type: event.Type, Payload: event.Payload, CreatedAt: event.CreatedAt}
			payload, _ := json.Marshal(env)
			h.Broadcast(payload, meta)
		}
		if len(events) > 0 {
			if err := store.UpdateConsumerOffset(pollCtx, realtimeConsumer, offset); err != nil {
				log.Printf("update offset error: %v", err)
			}
		}
		cancel()
		atomic.StoreInt32(&running, 0)
	}
}

// newRealtimeHandler serves sockjs connections. Patients who subscribe
// to their own booking get a background watcher that heals queue drift
// and pushes status updates until the booking leaves the queue.
func newRealtimeHandler(store *postgres.Store, h *hub.Hub, reconcileInterval time.Duration) http.Handler {
	return sockjs.NewHandler("/realtime", sockjs.DefaultOptions, func(session sockjs.Session) {
		client := &hub.Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
		h.Register(client)
		defer h.Unregister(client)

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		watchCtx, cancelWatch := context.WithCancel(context.Background())
		defer func() { cancelWatch() }()

		for {
			msg, err := session.Recv()
			if err != nil {
				return
			}
			parsed, ok := hub.ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			cancelWatch()
			nextCtx, nextCancel := context.WithCancel(context.Background())
			watchCtx, cancelWatch = nextCtx, nextCancel
			if parsed.Action == "unsubscribe" {
				h.UpdateSubscription(client, hub.Subscription{})
				continue
			}
			sub := hub.Subscription{
				CenterID:  parsed.CenterID,
				DoctorID:  parsed.DoctorID,
				BookingID: parsed.BookingID,
			}
			if needsStaffScope(sub) && !hasStaffSession(session.Request(), store) {
				_ = session.Close(4003, "access denied")
				return
			}
			h.UpdateSubscription(client, sub)

			if parsed.BookingID != "" {
				watcher := reconciler.NewWatcher(store, reconcileInterval, func(status models.QueueStatus) {
					payload, err := json.Marshal(eventEnvelope{
						Type:      "queue.status",
						Payload:   mustMarshal(status),
						CreatedAt: time.Now().UTC(),
					})
					if err != nil {
						return
					}
					select {
					case client.Send <- payload:
					default:
					}
				})
				go watcher.Watch(watchCtx, parsed.BookingID)
			}
		}
	})
}

// needsStaffScope reports whether a subscription covers more than a
// single booking. Center- and doctor-wide feeds expose other patients,
// so they require a staff session.
func needsStaffScope(sub hub.Subscription) bool {
	return sub.BookingID == "" && (sub.CenterID != "" || sub.DoctorID != "")
}

func hasStaffSession(r *http.Request, store *postgres.Store) bool {
	sessionID := sessionIDFromRequest(r)
	if sessionID == "" {
		return false
	}
	session, err := store.GetSession(context.Background(), sessionID)
	if err != nil {
		return false
	}
	return session.Role == "staff" || session.Role == "admin"
}

func sessionIDFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(r.URL.Query().Get("session_id"))
}

func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func extractMeta(payload []byte) hub.Subscription {
	var data map[string]interface{}
	if err := json.Unmarshal(payload, &data); err != nil {
		return hub.Subscription{}
	}
	return hub.Subscription{
		CenterID:  str(data["center_id"]),
		DoctorID:  str(data["doctor_id"]),
		BookingID: str(data["booking_id"]),
	}
}

func str(value interface{}) string {
	if value == nil {
		return ""
	}
	if v, ok := value.(string); ok {
		return v
	}
	return fmt.Sprint(value)
}

func mustMarshal(value any) json.RawMessage {
	data, err := json.Marshal(value)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}
