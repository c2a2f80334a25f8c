// Package events journals submissions in the local database.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type Payload map[string]any

// Event is one journaled call against the service.
type Event struct {
	ID        int64
	TS        time.Time
	Type      string
	APIName   string
	Username  string
	JobNumber *int
	State     string
	Payload   Payload
}

func (w Writer) Append(ctx context.Context, evtType, apiName, username string, jobnumber *int, state string, payload Payload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339Nano)
	if payload == nil {
		payload = Payload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	var job any
	if jobnumber != nil {
		job = *jobnumber
	}
	_, err = w.DB.ExecContext(ctx, `INSERT INTO job_events(ts,type,api_name,username,jobnumber,state,payload_json) VALUES (?,?,?,?,?,?,?)`,
		ts, evtType, apiName, nullable(username), job, state, string(data))
	return err
}

// List returns the most recent events first. An empty username matches all.
func (w Writer) List(ctx context.Context, username string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := w.DB.QueryContext(ctx, `
SELECT id, ts, type, api_name, COALESCE(username,''), jobnumber, state, payload_json
FROM job_events
WHERE (? = '' OR username = ?)
ORDER BY id DESC
LIMIT ?`, username, username, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var (
			e       Event
			ts      string
			job     sql.NullInt64
			payload string
		)
		if err := rows.Scan(&e.ID, &ts, &e.Type, &e.APIName, &e.Username, &job, &e.State, &payload); err != nil {
			return nil, err
		}
		if e.TS, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("event %d timestamp: %w", e.ID, err)
		}
		if job.Valid {
			n := int(job.Int64)
			e.JobNumber = &n
		}
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return nil, fmt.Errorf("event %d payload: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
