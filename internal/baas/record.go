package baas

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout 是后端记录时间戳的序列化格式。
const DateLayout = "2006-01-02 15:04:05.000Z"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05Z",
	"2006-01-02 15:04:05.000000000Z",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
}

// Record is a single row of a remote collection. Data holds the collection
// specific fields; Expand holds resolved relations (*Record or []*Record).
type Record struct {
	ID             string
	CollectionID   string
	CollectionName string
	Created        time.Time
	Updated        time.Time
	Data           map[string]any
	Expand         map[string]any
}

// NewRecord builds an empty record for the given collection.
func NewRecord(collection string) *Record {
	return &Record{
		CollectionID:   collection,
		CollectionName: collection,
		Data:           map[string]any{},
	}
}

// Get returns the raw field value.
func (r *Record) Get(key string) any {
	if r == nil {
		return nil
	}
	switch key {
	case "id":
		return r.ID
	case "collectionId":
		return r.CollectionID
	case "collectionName":
		return r.CollectionName
	case "created":
		return r.Created
	case "updated":
		return r.Updated
	}
	if r.Data == nil {
		return nil
	}
	return r.Data[key]
}

// Set assigns a data field.
func (r *Record) Set(key string, value any) {
	if r.Data == nil {
		r.Data = map[string]any{}
	}
	r.Data[key] = value
}

// GetString returns the field as a string, empty when missing.
func (r *Record) GetString(key string) string {
	switch v := r.Get(key).(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.UTC().Format(DateLayout)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// GetFloat returns the field as a float64.
func (r *Record) GetFloat(key string) float64 {
	f, _ := ToFloat(r.Get(key))
	return f
}

// GetInt returns the field as an int.
func (r *Record) GetInt(key string) int {
	return int(r.GetFloat(key))
}

// GetBool returns the field as a bool.
func (r *Record) GetBool(key string) bool {
	switch v := r.Get(key).(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return false
	}
}

// GetStrings returns the field as a string slice. A single string value is
// returned as a one element slice.
func (r *Record) GetStrings(key string) []string {
	switch v := r.Get(key).(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// GetTime parses the field as a timestamp.
func (r *Record) GetTime(key string) time.Time {
	switch v := r.Get(key).(type) {
	case time.Time:
		return v
	case string:
		t, _ := ParseTime(v)
		return t
	default:
		return time.Time{}
	}
}

// ExpandOne returns a single expanded relation.
func (r *Record) ExpandOne(key string) *Record {
	if r == nil || r.Expand == nil {
		return nil
	}
	switch v := r.Expand[key].(type) {
	case *Record:
		return v
	case []*Record:
		if len(v) > 0 {
			return v[0]
		}
	}
	return nil
}

// ExpandMany returns an expanded relation list.
func (r *Record) ExpandMany(key string) []*Record {
	if r == nil || r.Expand == nil {
		return nil
	}
	switch v := r.Expand[key].(type) {
	case []*Record:
		return v
	case *Record:
		return []*Record{v}
	}
	return nil
}

// Clone returns a shallow copy with independent Data/Expand maps.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Data = make(map[string]any, len(r.Data))
	for k, v := range r.Data {
		out.Data[k] = v
	}
	if r.Expand != nil {
		out.Expand = make(map[string]any, len(r.Expand))
		for k, v := range r.Expand {
			out.Expand[k] = v
		}
	}
	return &out
}

// MarshalJSON flattens the record into the wire shape used by the backend.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Data)+6)
	for k, v := range r.Data {
		out[k] = v
	}
	out["id"] = r.ID
	out["collectionId"] = r.CollectionID
	out["collectionName"] = r.CollectionName
	out["created"] = formatTime(r.Created)
	out["updated"] = formatTime(r.Updated)
	if len(r.Expand) > 0 {
		out["expand"] = r.Expand
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the flat wire shape.
func (r *Record) UnmarshalJSON(raw []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}

	*r = Record{Data: map[string]any{}}
	for key, value := range fields {
		switch key {
		case "id":
			_ = json.Unmarshal(value, &r.ID)
		case "collectionId":
			_ = json.Unmarshal(value, &r.CollectionID)
		case "collectionName":
			_ = json.Unmarshal(value, &r.CollectionName)
		case "created", "updated":
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			t, _ := ParseTime(s)
			if key == "created" {
				r.Created = t
			} else {
				r.Updated = t
			}
		case "expand":
			expand, err := decodeExpand(value)
			if err != nil {
				return err
			}
			r.Expand = expand
		default:
			var v any
			dec := json.NewDecoder(bytes.NewReader(value))
			if err := dec.Decode(&v); err != nil {
				return fmt.Errorf("decode field %s: %w", key, err)
			}
			r.Data[key] = v
		}
	}
	return nil
}

func decodeExpand(raw json.RawMessage) (map[string]any, error) {
	var items map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode expand: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	out := make(map[string]any, len(items))
	for key, value := range items {
		trimmed := bytes.TrimSpace(value)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			continue
		}
		if trimmed[0] == '[' {
			var list []*Record
			if err := json.Unmarshal(trimmed, &list); err != nil {
				return nil, fmt.Errorf("decode expand %s: %w", key, err)
			}
			out[key] = list
			continue
		}
		var single Record
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, fmt.Errorf("decode expand %s: %w", key, err)
		}
		out[key] = &single
	}
	return out, nil
}

// ParseTime accepts the backend timestamp layouts.
func ParseTime(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, nil
	}
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, trimmed)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

// ToFloat converts loosely typed numeric values.
func ToFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
