package queue

import (
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		want    Message
		wantErr bool
	}{
		{
			name:   "complete message",
			values: map[string]any{"job_id": "j-1", "attempt": "3", "trace_id": "abc"},
			want:   Message{ID: "1-0", JobID: "j-1", Attempt: 3, TraceID: "abc"},
		},
		{
			name:   "attempt defaults to 1",
			values: map[string]any{"job_id": "j-2"},
			want:   Message{ID: "1-0", JobID: "j-2", Attempt: 1},
		},
		{
			name:    "missing job_id",
			values:  map[string]any{"attempt": "1"},
			wantErr: true,
		},
		{
			name:    "empty job_id",
			values:  map[string]any{"job_id": ""},
			wantErr: true,
		},
		{
			name:    "malformed attempt",
			values:  map[string]any{"job_id": "j-3", "attempt": "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := redis.XMessage{ID: "1-0", Values: tt.values}
			got, err := ParseMessage(raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMessage: %v", err)
			}
			if got.JobID != tt.want.JobID || got.Attempt != tt.want.Attempt || got.TraceID != tt.want.TraceID {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMessageValuesRoundTrip(t *testing.T) {
	msg := Message{JobID: "j-9", Attempt: 1, TraceID: "t-1"}
	values := messageValues(msg, 2)

	parsed, err := ParseMessage(redis.XMessage{ID: "2-0", Values: values})
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if parsed.JobID != "j-9" || parsed.Attempt != 2 || parsed.TraceID != "t-1" {
		t.Fatalf("round trip lost fields: %+v", parsed)
	}
}
