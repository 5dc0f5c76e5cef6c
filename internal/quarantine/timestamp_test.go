package quarantine

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"rfc3339 utc", `"2024-01-15T10:30:00Z"`, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), false},
		{"rfc3339 offset", `"2024-01-15T12:30:00+02:00"`, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), false},
		{"rfc3339 nanos", `"2024-01-15T10:30:00.123456789Z"`, time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.UTC), false},
		{"naive with micros", `"2024-01-15T10:30:00.123456"`, time.Date(2024, 1, 15, 10, 30, 0, 123456000, time.Local), false},
		{"naive seconds", `"2024-01-15T10:30:00"`, time.Date(2024, 1, 15, 10, 30, 0, 0, time.Local), false},
		{"naive with space", `"2024-01-15 10:30:00"`, time.Date(2024, 1, 15, 10, 30, 0, 0, time.Local), false},
		{"null", `null`, time.Time{}, false},
		{"empty string", `""`, time.Time{}, false},
		{"garbage", `"last tuesday"`, time.Time{}, true},
		{"number", `1705314600`, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			err := json.Unmarshal([]byte(tt.input), &ts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !ts.Equal(tt.want) {
				t.Errorf("Unmarshal() = %v, want %v", ts.Time, tt.want)
			}
		})
	}
}

func TestTimestamp_MarshalJSON(t *testing.T) {
	ts := NewTimestamp(time.Date(2024, 1, 15, 10, 30, 0, 500, time.UTC))
	data, err := json.Marshal(ts)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `"2024-01-15T10:30:00.0000005Z"` {
		t.Errorf("Marshal() = %s", data)
	}

	zero, err := json.Marshal(Timestamp{})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(zero) != "null" {
		t.Errorf("Marshal(zero) = %s, want null", zero)
	}
}
