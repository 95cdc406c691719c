package runs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultTTL bounds how long a run and its events stay in Redis.
const DefaultTTL = 24 * time.Hour

func runKey(id string) string     { return "run:" + id }
func eventsKey(id string) string  { return "run:" + id + ":events" }
func seqKey(id string) string     { return "run:" + id + ":seq" }
func channelKey(id string) string { return "run:" + id + ":stream" }

// Tracker stores runs in Redis: a hash per run, a list of events, and a
// pub/sub channel for live subscribers.
type Tracker struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
	now func() time.Time
}

func NewTracker(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{rdb: rdb, ttl: ttl, log: log, now: time.Now}
}

// Start records a new running run owned by userID.
func (t *Tracker) Start(ctx context.Context, runID, userID, title string) error {
	_, err := t.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, runKey(runID), map[string]any{
			"user_id": userID,
			"title":   title,
			"status":  string(StatusRunning),
			"started": t.now().UTC().Format(time.RFC3339Nano),
		})
		p.Expire(ctx, runKey(runID), t.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("start run %s: %w", runID, err)
	}
	return nil
}

// Append assigns the next sequence number to ev, stores it and publishes it.
func (t *Tracker) Append(ctx context.Context, runID string, ev Event) error {
	seq, err := t.rdb.Incr(ctx, seqKey(runID)).Result()
	if err != nil {
		return fmt.Errorf("append run %s: %w", runID, err)
	}
	ev.Seq = seq
	if ev.Time.IsZero() {
		ev.Time = t.now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = t.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, eventsKey(runID), data)
		p.Expire(ctx, eventsKey(runID), t.ttl)
		p.Expire(ctx, seqKey(runID), t.ttl)
		p.Publish(ctx, channelKey(runID), data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append run %s: %w", runID, err)
	}
	return nil
}

// Finish marks the run completed with reportID, or failed when runErr is set,
// and appends the terminal event.
func (t *Tracker) Finish(ctx context.Context, runID, reportID string, runErr error) error {
	fields := map[string]any{"status": string(StatusCompleted), "report_id": reportID}
	ev := Event{Type: TypeDone, Percent: 100, Phase: "done", ReportID: reportID, Message: "Report ready"}
	if runErr != nil {
		fields = map[string]any{"status": string(StatusFailed), "error": runErr.Error()}
		ev = Event{Type: TypeError, Message: runErr.Error()}
	}
	if err := t.rdb.HSet(ctx, runKey(runID), fields).Err(); err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return t.Append(ctx, runID, ev)
}

// Get returns the run with all events recorded so far.
func (t *Tracker) Get(ctx context.Context, runID string) (*Run, error) {
	h, err := t.rdb.HGetAll(ctx, runKey(runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	if len(h) == 0 {
		return nil, ErrUnknownRun
	}
	events, err := t.events(ctx, runID)
	if err != nil {
		return nil, err
	}
	run := &Run{
		ID:       runID,
		UserID:   h["user_id"],
		Title:    h["title"],
		Status:   Status(h["status"]),
		ReportID: h["report_id"],
		Error:    h["error"],
		Events:   events,
	}
	run.Started, _ = time.Parse(time.RFC3339Nano, h["started"])
	return run, nil
}

func (t *Tracker) events(ctx context.Context, runID string) ([]Event, error) {
	raw, err := t.rdb.LRange(ctx, eventsKey(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("run %s events: %w", runID, err)
	}
	events := make([]Event, 0, len(raw))
	for _, r := range raw {
		var ev Event
		if err := json.Unmarshal([]byte(r), &ev); err != nil {
			t.log.Warn("skipping corrupt run event", zap.String("run_id", runID), zap.Error(err))
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// Subscribe replays the events recorded so far and then follows live ones.
// The channel is closed after a terminal event or when ctx is done.
func (t *Tracker) Subscribe(ctx context.Context, runID string) (<-chan Event, error) {
	n, err := t.rdb.Exists(ctx, runKey(runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("subscribe run %s: %w", runID, err)
	}
	if n == 0 {
		return nil, ErrUnknownRun
	}

	// Subscribe before reading the backlog so nothing published in between is lost.
	sub := t.rdb.Subscribe(ctx, channelKey(runID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe run %s: %w", runID, err)
	}
	backlog, err := t.events(ctx, runID)
	if err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		f := follower{out: out}
		if !f.replay(ctx, backlog) {
			return
		}
		live := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-live:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				if !f.send(ctx, ev) {
					return
				}
			}
		}
	}()
	return out, nil
}

// follower forwards events in sequence order, dropping duplicates seen in
// both the backlog and the live channel.
type follower struct {
	out  chan<- Event
	last int64
}

func (f *follower) replay(ctx context.Context, events []Event) bool {
	for _, ev := range events {
		if !f.send(ctx, ev) {
			return false
		}
	}
	return true
}

// send reports whether the caller should keep forwarding.
func (f *follower) send(ctx context.Context, ev Event) bool {
	if ev.Seq <= f.last {
		return true
	}
	f.last = ev.Seq
	select {
	case f.out <- ev:
	case <-ctx.Done():
		return false
	}
	return !ev.Terminal()
}
