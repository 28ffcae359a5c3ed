package dashboard

import (
	"encoding/json"
	"log"
	"time"

	"github.com/pjp27/organizacion/internal/planner"
)

// StatsSource reports the current board statistics.
type StatsSource interface {
	Stats(ref time.Time) planner.Stats
}

// RecordUpdateData describes a changed record.
type RecordUpdateData struct {
	Collection string `json:"collection"`
	Action     string `json:"action"`
	ID         string `json:"id,omitempty"`
}

// DocumentResult is the outcome of saving one document.
type DocumentResult struct {
	Revision string `json:"revision"`
	Attempts int    `json:"attempts"`
	Records  int    `json:"records"`
}

// SyncCompleteData describes a finished save.
type SyncCompleteData struct {
	OK    bool            `json:"ok"`
	Tasks *DocumentResult `json:"tasks,omitempty"`
	Exams *DocumentResult `json:"exams,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Handler turns planner notifications into dashboard messages.
// It implements planner.Observer.
type Handler struct {
	server *Server
	stats  StatsSource
	logger *log.Logger
	now    func() time.Time
}

var _ planner.Observer = (*Handler)(nil)

// NewHandler creates a handler that broadcasts through server. Stats are
// read from stats after every change and sent to new clients on connect.
func NewHandler(server *Server, stats StatsSource, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	h := &Handler{
		server: server,
		stats:  stats,
		logger: logger,
		now:    time.Now,
	}
	server.SetWelcome(h.statsMessage)
	return h
}

// OnChange implements planner.Observer.
func (h *Handler) OnChange(c planner.Change) {
	h.logger.Printf("Record %s: %s %s", c.Action, c.Collection, c.ID)

	h.send(MessageTypeRecordUpdate, RecordUpdateData{
		Collection: string(c.Collection),
		Action:     string(c.Action),
		ID:         c.ID,
	})
	h.server.Broadcast(h.statsMessage())
}

// OnSync implements planner.Observer.
func (h *Handler) OnSync(r planner.SyncReport) {
	data := SyncCompleteData{OK: r.OK()}
	if r.Tasks != nil {
		data.Tasks = &DocumentResult{Revision: r.Tasks.Revision, Attempts: r.Tasks.Attempts, Records: r.Tasks.Records}
	}
	if r.Exams != nil {
		data.Exams = &DocumentResult{Revision: r.Exams.Revision, Attempts: r.Exams.Attempts, Records: r.Exams.Records}
	}
	if r.Err != nil {
		data.Error = r.Err.Error()
	}

	h.logger.Printf("Sync complete (ok=%v)", data.OK)
	h.send(MessageTypeSyncComplete, data)
}

func (h *Handler) send(typ MessageType, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal %s data: %v", typ, err)
		return
	}
	h.server.Broadcast(Message{Type: typ, Timestamp: h.now(), Data: raw})
}

func (h *Handler) statsMessage() Message {
	msg := Message{Type: MessageTypeStats, Timestamp: h.now()}
	if h.stats == nil {
		return msg
	}
	raw, err := json.Marshal(h.stats.Stats(h.now()))
	if err != nil {
		h.logger.Printf("Failed to marshal stats: %v", err)
		return msg
	}
	msg.Data = raw
	return msg
}
