package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	appoutbox "reservations/internal/app/outbox"
)

const (
	stateNew     = "NEW"
	stateClaimed = "CLAIMED"
	stateSent    = "SENT"
	stateFailed  = "FAILED"
)

type outboxEntry struct {
	record    appoutbox.EventRecord
	state     string
	attempts  int
	nextAt    time.Time
	lastError string
	seq       int
}

// Outbox queues records in memory for the outbox worker.
type Outbox struct {
	mu      sync.Mutex
	seq     int
	records map[string]*outboxEntry
	now     func() time.Time
}

func NewOutbox() *Outbox {
	return &Outbox{records: make(map[string]*outboxEntry), now: func() time.Time { return time.Now().UTC() }}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seq++
	o.records[record.ID] = &outboxEntry{record: record, state: stateNew, nextAt: o.now(), seq: o.seq}
	return nil
}

// Flush drops records that were already published.
func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, entry := range o.records {
		if entry.state == stateSent {
			delete(o.records, id)
		}
	}
	return nil
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*appoutbox.Delivery, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	var due []*outboxEntry
	for _, entry := range o.records {
		if (entry.state == stateNew || entry.state == stateFailed) && !entry.nextAt.After(now) {
			due = append(due, entry)
		}
	}
	if len(due) == 0 {
		return nil, nil
	}
	sort.Slice(due, func(i, j int) bool { return due[i].seq < due[j].seq })
	entry := due[0]
	entry.state = stateClaimed
	return &appoutbox.Delivery{EventRecord: entry.record, Attempts: entry.attempts}, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if entry, ok := o.records[id]; ok {
		entry.state = stateSent
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if entry, ok := o.records[id]; ok {
		entry.state = stateFailed
		entry.attempts++
		entry.nextAt = next
		entry.lastError = errMsg
	}
	return nil
}

// Pending lists records not yet published, oldest first.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	var entries []*outboxEntry
	for _, entry := range o.records {
		if entry.state != stateSent {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]appoutbox.EventRecord, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.record)
	}
	return out
}

var (
	_ appoutbox.Outbox = (*Outbox)(nil)
	_ appoutbox.Queue  = (*Outbox)(nil)
)
