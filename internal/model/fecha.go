package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// naiveLayout is what DRF emits when USE_TZ is disabled on the backend.
const naiveLayout = "2006-01-02T15:04:05.999999999"

// Fecha is a backend timestamp. Values without a UTC offset are read in
// local time.
type Fecha struct {
	time.Time
}

func NewFecha(t time.Time) Fecha { return Fecha{Time: t} }

func (f Fecha) MarshalJSON() ([]byte, error) {
	if f.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(f.Format(time.RFC3339Nano))
}

func (f *Fecha) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		f.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("model: fecha invalida %s: %w", b, err)
	}
	if s == "" {
		f.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		f.Time = t
		return nil
	}
	t, err := time.ParseInLocation(naiveLayout, s, time.Local)
	if err != nil {
		return fmt.Errorf("model: fecha invalida %q: %w", s, err)
	}
	f.Time = t
	return nil
}
