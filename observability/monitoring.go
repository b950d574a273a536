// Package observability aggregates broker metrics for logs and the debug
// endpoint. Counters are atomic so any goroutine may increment them without
// touching the broker's serialization.
package observability

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Stats is the snapshot served by the debug endpoint.
type Stats struct {
	Rooms           int     `json:"rooms"`
	Sessions        int     `json:"sessions"`
	MessagesPosted  uint64  `json:"messages_posted"`
	EventsDelivered uint64  `json:"events_delivered"`
	EventsDropped   uint64  `json:"events_dropped"`
	RoomsCreated    uint64  `json:"rooms_created"`
	RoomsAbandoned  uint64  `json:"rooms_abandoned"`
	AllocMemMb      uint64  `json:"alloc_mem_mb"`
	NumGC           uint32  `json:"num_gc"`
	ProcRSSMb       uint64  `json:"proc_rss_mb"`
	ProcCPUPercent  float64 `json:"proc_cpu_percent"`
	CollectedAt     string  `json:"collected_at"`
}

// GaugeProvider reports point-in-time sizes owned by the broker.
type GaugeProvider func() (rooms, sessions int)

type Monitoring struct {
	log *slog.Logger

	messagesPosted  uint64
	eventsDelivered uint64
	eventsDropped   uint64
	roomsCreated    uint64
	roomsAbandoned  uint64

	mu         sync.Mutex
	gauges     GaugeProvider
	procRSS    uint64
	procCPU    float64
}

func NewMonitoring(log *slog.Logger) *Monitoring {
	return &Monitoring{log: log}
}

// SetGaugeProvider wires the broker's live room/session counts in.
func (m *Monitoring) SetGaugeProvider(p GaugeProvider) {
	m.mu.Lock()
	m.gauges = p
	m.mu.Unlock()
}

func (m *Monitoring) IncMessagesPosted()  { atomic.AddUint64(&m.messagesPosted, 1) }
func (m *Monitoring) IncEventsDelivered() { atomic.AddUint64(&m.eventsDelivered, 1) }
func (m *Monitoring) IncEventsDropped()   { atomic.AddUint64(&m.eventsDropped, 1) }
func (m *Monitoring) IncRoomsCreated()    { atomic.AddUint64(&m.roomsCreated, 1) }
func (m *Monitoring) IncRoomsAbandoned()  { atomic.AddUint64(&m.roomsAbandoned, 1) }

// RecordProcessStats stores the latest self-measurements from the heartbeat worker.
func (m *Monitoring) RecordProcessStats(rssBytes uint64, cpuPercent float64) {
	m.mu.Lock()
	m.procRSS = rssBytes
	m.procCPU = cpuPercent
	m.mu.Unlock()
}

// GetLatest builds a consistent snapshot of every metric.
func (m *Monitoring) GetLatest() Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m.mu.Lock()
	gauges := m.gauges
	rss := m.procRSS
	cpu := m.procCPU
	m.mu.Unlock()

	var rooms, sessions int
	if gauges != nil {
		rooms, sessions = gauges()
	}

	return Stats{
		Rooms:           rooms,
		Sessions:        sessions,
		MessagesPosted:  atomic.LoadUint64(&m.messagesPosted),
		EventsDelivered: atomic.LoadUint64(&m.eventsDelivered),
		EventsDropped:   atomic.LoadUint64(&m.eventsDropped),
		RoomsCreated:    atomic.LoadUint64(&m.roomsCreated),
		RoomsAbandoned:  atomic.LoadUint64(&m.roomsAbandoned),
		AllocMemMb:      mem.Alloc / 1024 / 1024,
		NumGC:           mem.NumGC,
		ProcRSSMb:       rss / 1024 / 1024,
		ProcCPUPercent:  cpu,
		CollectedAt:     time.Now().UTC().Format(time.RFC3339),
	}
}
