package csvsink

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/go-row-stream/rowstream/cursor"
)

var jsonStd = jsoniter.ConfigCompatibleWithStandardLibrary

// Format converts v to its cell representation the way the CSV sink does,
// using nullValue for nil. It is exported for callers that write CSV from
// raw rows rather than through a Sink.
func Format(v any, nullValue string) string {
	s := settings{nullValue: nullValue}
	return s.toString(v, cursor.Metadata{})
}

// toString converts one field value to its CSV cell representation.
//
// nil values become the configured nullValue. Custom conversions registered
// via WithCustomType take precedence. Built-in support covers the primitive
// types, string and []byte, time.Time (RFC3339Nano, nullValue for zero
// time), json.Marshaler and fmt.Stringer, with a JSON-marshal fallback for
// everything else.
func (s *settings) toString(v any, metadata cursor.Metadata) string {
	if v == nil {
		return s.nullValue
	}
	if fn, ok := s.customMapper[reflect.TypeOf(v)]; ok {
		return fn(v, metadata)
	}
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case time.Time:
		if v.IsZero() {
			return s.nullValue
		}
		return v.Format(time.RFC3339Nano)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	if jsonMarshaler, ok := v.(json.Marshaler); ok {
		if jsonData, err := jsonMarshaler.MarshalJSON(); err == nil {
			str := strings.Trim(string(jsonData), `"`)
			if str == "[]" || str == "{}" || str == "null" {
				return s.nullValue
			}
			return str
		}
	}
	if fmtStringer, ok := v.(fmt.Stringer); ok {
		return fmtStringer.String()
	}
	if jsonData, err := jsonStd.Marshal(v); err == nil {
		str := strings.Trim(string(jsonData), `"`)
		if str == "[]" || str == "{}" || str == "null" {
			return s.nullValue
		}
		return str
	}
	return fmt.Sprintf("%v", v)
}
