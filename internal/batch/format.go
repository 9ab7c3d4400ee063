package batch

import "github.com/example/reviewcore/pkg/models"

// crashLogLine is the bit-exact wire shape of one line of
// backup_study_records.json (§6): {"itemId", "record": {...}, "timestamp"}.
type crashLogLine struct {
	ItemID    string         `json:"itemId"`
	Record    crashLogRecord `json:"record"`
	Timestamp int64          `json:"timestamp"`
}

type crashLogRecord struct {
	ReviewTime int64   `json:"reviewTime"`
	DwellTime  int64   `json:"dwellTime"`
	Action     string  `json:"action"`
	SessionID  *string `json:"sessionId"`
}

func toCrashLogLine(itemID string, record models.ReviewRecord, timestampMillis int64) crashLogLine {
	return crashLogLine{
		ItemID: itemID,
		Record: crashLogRecord{
			ReviewTime: record.ReviewTime.UnixMilli(),
			DwellTime:  record.DwellMillis,
			Action:     string(record.Action),
			SessionID:  record.SessionID,
		},
		Timestamp: timestampMillis,
	}
}

// pendingSnapshot is the single JSON object pending_updates.json holds:
// {"updates": {id: item}, "records": {id: [record, ...]}}.
type pendingSnapshot struct {
	Updates map[string]*models.Item          `json:"updates"`
	Records map[string][]models.ReviewRecord `json:"records"`
}
