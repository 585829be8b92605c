package router

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"gopkg.in/yaml.v3"
)

// Clock is a service-day time in seconds after midnight. It may exceed 24h
// for trips running past midnight. Encoded inputs accept either the number
// of seconds or an "HH:MM[:SS]" string.
type Clock int32

// ParseClock parses "HH:MM" or "HH:MM:SS"; hours are not bounded by 24.
func ParseClock(s string) (int32, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	var fields [3]int64
	for i, part := range parts {
		// 只接受数字，不允许符号
		if part == "" || strings.TrimLeft(part, "0123456789") != "" {
			return 0, fmt.Errorf("invalid clock %q", s)
		}
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid clock %q", s)
		}
		fields[i] = v
	}
	if fields[1] >= 60 || fields[2] >= 60 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	if fields[0] > math.MaxInt32/3600 {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	total := fields[0]*3600 + fields[1]*60 + fields[2]
	if total > math.MaxInt32 {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	return int32(total), nil
}

func FormatClock(t int32) string {
	if t < 0 {
		return "-" + FormatClock(-t)
	}
	return fmt.Sprintf("%02d:%02d:%02d", t/3600, t/60%60, t%60)
}

func (c Clock) String() string {
	return FormatClock(int32(c))
}

// 负数无法写成HH:MM:SS，直接输出秒数
func (c Clock) MarshalJSON() ([]byte, error) {
	if c < 0 {
		return json.Marshal(int32(c))
	}
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(b []byte) error {
	var n int32
	if err := json.Unmarshal(b, &n); err == nil {
		*c = Clock(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("clock must be seconds or HH:MM:SS: %w", err)
	}
	t, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = Clock(t)
	return nil
}

func (c *Clock) UnmarshalYAML(value *yaml.Node) error {
	var n int32
	if err := value.Decode(&n); err == nil {
		*c = Clock(n)
		return nil
	}
	t, err := ParseClock(value.Value)
	if err != nil {
		return err
	}
	*c = Clock(t)
	return nil
}

func (c *Clock) UnmarshalBSONValue(typ bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: typ, Value: data}
	switch typ {
	case bsontype.Int32:
		*c = Clock(raw.Int32())
	case bsontype.Int64:
		v := raw.Int64()
		if v < math.MinInt32 || v > math.MaxInt32 {
			return fmt.Errorf("clock %d out of range", v)
		}
		*c = Clock(v)
	case bsontype.Double:
		v := raw.Double()
		if v < math.MinInt32 || v > math.MaxInt32 {
			return fmt.Errorf("clock %v out of range", v)
		}
		*c = Clock(v)
	case bsontype.String:
		t, err := ParseClock(raw.StringValue())
		if err != nil {
			return err
		}
		*c = Clock(t)
	default:
		return fmt.Errorf("cannot decode clock from bson %v", typ)
	}
	return nil
}
