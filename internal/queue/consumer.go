package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/terra-tranquil-api/internal/logger"
)

// Handler processes one decoded event.  Returning an error rejects the
// message without requeueing it.
type Handler func(ctx context.Context, ev VisitLoggedEvent) error

// Consumer reads the visit.logged queue and hands each event to a Handler.
type Consumer struct {
    URL     string
    Handler Handler
    Log     *logger.Logger
}

// Run connects, declares the queue and consumes until ctx is cancelled.
// Broker failures are logged and retried with exponential backoff capped at
// 30s; Run only returns once ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Log.Warn("visit consumer: dial failed", "error", err, "retry_in", backoff.String())
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Log.Warn("visit consumer: loop ended, reconnecting", "error", err)
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Log.Warn("visit consumer: set QoS failed", "error", err)
    }
    if _, err := ch.QueueDeclare(VisitLoggedQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(VisitLoggedQueue, "", false, false, false, false, nil)
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
            if err := c.handle(ctx, d.Body); err != nil {
                c.Log.Error("visit consumer: handle message failed", "error", err)
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
    var ev VisitLoggedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.UserID == "" || ev.VisitID == "" {
        return errors.New("event missing user_id or visit_id")
    }
    return c.Handler(ctx, ev)
}

// LogActivity is a Handler that writes each visit as a structured log line.
func LogActivity(log *logger.Logger) Handler {
    return func(_ context.Context, ev VisitLoggedEvent) error {
        log.Info("visit logged",
            "visit_id", ev.VisitID,
            "user_id", ev.UserID,
            "username", ev.Username,
            "business_id", ev.BusinessID,
            "business", ev.BusinessName,
            "category", ev.Category,
            "eco_points", ev.EcoPoints,
            "total_visits", ev.TotalVisits,
            "total_points", ev.TotalPoints,
            "terra_level", ev.TerraLevel,
            "logged_at", ev.LoggedAt,
        )
        return nil
    }
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
