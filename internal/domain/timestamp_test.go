package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimestampUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{
			name:  "rfc3339 with zone",
			input: `"2025-01-15T10:30:00Z"`,
			want:  time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "naive with microseconds",
			input: `"2025-01-15T10:30:00.123456"`,
			want:  time.Date(2025, 1, 15, 10, 30, 0, 123456000, time.UTC),
		},
		{
			name:  "naive without fraction",
			input: `"2025-01-15T10:30:00"`,
			want:  time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "space separated",
			input: `"2025-01-15 10:30:00"`,
			want:  time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "null",
			input: `null`,
			want:  time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			if err := json.Unmarshal([]byte(tt.input), &ts); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if !ts.Equal(tt.want) {
				t.Errorf("Unmarshal() = %v, want %v", ts.Time, tt.want)
			}
		})
	}
}

func TestTimestampUnmarshal_Invalid(t *testing.T) {
	for _, input := range []string{`"yesterday"`, `12345`} {
		var ts Timestamp
		if err := json.Unmarshal([]byte(input), &ts); err == nil {
			t.Errorf("Unmarshal(%s) expected error, got nil", input)
		}
	}
}

func TestReadingDecode(t *testing.T) {
	payload := `{"id": 7, "device": "bulb_1", "timestamp": "2025-01-15T10:30:00.5", "current": 0.45, "voltage": 229.8}`

	var r Reading
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if r.Device != "bulb_1" || r.ID != 7 {
		t.Errorf("Reading = %+v", r)
	}
	if r.Timestamp.Nanosecond() != 500000000 {
		t.Errorf("Timestamp nanos = %d, want 500000000", r.Timestamp.Nanosecond())
	}
}
