package pgwire

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// OIDs of the built-in types this package decodes (spec.md §6). Types not
// listed here fall back to their raw text representation as a string.
const (
	OIDBool        = 16
	OIDBytea       = 17
	OIDChar        = 18
	OIDInt8        = 20
	OIDInt2        = 21
	OIDInt4        = 23
	OIDOID         = 26
	OIDText        = 25
	OIDJSON        = 114
	OIDJSONArray   = 199
	OIDFloat4      = 700
	OIDFloat8      = 701
	OIDVarchar     = 1043
	OIDDate        = 1082
	OIDTime        = 1083
	OIDTimestamp   = 1114
	OIDTimestampTZ = 1184
	OIDBit         = 1560
	OIDNumeric     = 1700
	OIDUUID        = 2950
	OIDJSONB       = 3802
	OIDJSONBArray  = 3807
)

// JSON is a lazily-parsed json/jsonb column value: the raw bytes are kept
// as received and only decoded on demand.
type JSON struct {
	Raw []byte
}

// Get unmarshals the value into v, per encoding/json.Unmarshal semantics.
func (j JSON) Get(v interface{}) error {
	return json.Unmarshal(j.Raw, v)
}

func (j JSON) String() string {
	return string(j.Raw)
}

// MarshalJSON implements json.Marshaler by returning the raw bytes
// unchanged.
func (j JSON) MarshalJSON() ([]byte, error) {
	return j.Raw, nil
}

// decodeValue converts the text-format wire representation of a column
// into its native Go value, dispatching on the field's data type OID. A
// nil raw value (SQL NULL) always decodes to nil regardless of OID.
func decodeValue(oid int32, raw []byte) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	s := string(raw)

	switch oid {
	case OIDBool:
		return s == "t", nil
	case OIDBit:
		return s == "1", nil
	case OIDBytea:
		return decodeBytea(s)
	case OIDChar:
		r, _ := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError {
			return "", nil
		}
		return r, nil
	case OIDInt2:
		v, err := strconv.ParseInt(s, 10, 16)
		return int16(v), err
	case OIDInt4:
		v, err := strconv.ParseInt(s, 10, 32)
		return int32(v), err
	case OIDInt8:
		return strconv.ParseInt(s, 10, 64)
	case OIDOID:
		v, err := strconv.ParseUint(s, 10, 32)
		return uint32(v), err
	case OIDFloat4:
		v, err := strconv.ParseFloat(s, 32)
		return float32(v), err
	case OIDFloat8:
		return strconv.ParseFloat(s, 64)
	case OIDNumeric:
		return decodeNumeric(s)
	case OIDText, OIDVarchar:
		return s, nil
	case OIDUUID:
		u, err := uuid.FromString(s)
		if err != nil {
			return nil, err
		}
		return u, nil
	case OIDJSON, OIDJSONArray, OIDJSONB, OIDJSONBArray:
		return JSON{Raw: raw}, nil
	case OIDDate:
		return time.Parse("2006-01-02", s)
	case OIDTime:
		return time.Parse("15:04:05.999999", s)
	case OIDTimestamp:
		return time.Parse("2006-01-02 15:04:05.999999", s)
	case OIDTimestampTZ:
		// Postgres emits a numeric UTC offset (e.g. "+00"); no zone name is
		// on the wire, so this decodes to a fixed-offset, not zone-aware, Time.
		return parseTimestampTZ(s)
	default:
		return s, nil
	}
}

// decodeNumeric parses an arbitrary-precision decimal literal exactly via
// shopspring/decimal, narrowing to float64 only as the final step. Values
// with more significant digits than a float64 holds lose precision in that
// step; see DESIGN.md.
func decodeNumeric(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}

func decodeBytea(s string) ([]byte, error) {
	if strings.HasPrefix(s, "\\x") {
		return hexDecode(s[2:])
	}
	// legacy escape format: not produced by any server this package targets
	// (bytea_output=hex is the default since PostgreSQL 9.0).
	return []byte(s), nil
}

func hexDecode(s string) ([]byte, error) {
	out := make([]byte, len(s)/2)
	for i := range out {
		v, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, err
		}
		out[i] = byte(v)
	}
	return out, nil
}

func parseTimestampTZ(s string) (time.Time, error) {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999Z07",
		"2006-01-02 15:04:05.999999Z07:00",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Parse("2006-01-02 15:04:05.999999-07", s)
}

// encodeParam converts a Go value into the text-format representation
// used for a Bind parameter (spec.md §6). nil (or a typed nil) encodes as
// a SQL NULL.
func encodeParam(v interface{}) ([]byte, bool) {
	if v == nil {
		return nil, true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface:
		if rv.IsNil() {
			return nil, true
		}
	}
	switch t := v.(type) {
	case string:
		return []byte(t), false
	case []byte:
		return t, false
	case bool:
		if t {
			return []byte("t"), false
		}
		return []byte("f"), false
	case int:
		return []byte(strconv.FormatInt(int64(t), 10)), false
	case int16:
		return []byte(strconv.FormatInt(int64(t), 10)), false
	case int32:
		return []byte(strconv.FormatInt(int64(t), 10)), false
	case int64:
		return []byte(strconv.FormatInt(t, 10)), false
	case float32:
		return []byte(strconv.FormatFloat(float64(t), 'f', -1, 32)), false
	case float64:
		return []byte(strconv.FormatFloat(t, 'f', -1, 64)), false
	case decimal.Decimal:
		return []byte(t.String()), false
	case uuid.UUID:
		return []byte(t.String()), false
	case time.Time:
		return []byte(t.Format("2006-01-02 15:04:05.999999Z07:00")), false
	case JSON:
		return t.Raw, false
	case []interface{}:
		return []byte(encodeArrayLiteral(t)), false
	default:
		return []byte(fmtDefault(v)), false
	}
}

func fmtDefault(v interface{}) string {
	return strings.TrimSuffix(strings.TrimPrefix(jsonStringify(v), `"`), `"`)
}

func jsonStringify(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// encodeArrayLiteral renders elems as a Postgres array literal, double-
// quoting every non-nil element (backslash-escaping any '"' or '\' in it)
// and rendering a nil element as the unquoted keyword NULL.
func encodeArrayLiteral(elems []interface{}) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, e := range elems {
		if i > 0 {
			b.WriteByte(',')
		}
		if e == nil {
			b.WriteString("NULL")
			continue
		}
		raw, _ := encodeParam(e)
		b.WriteByte('"')
		for _, r := range string(raw) {
			if r == '"' || r == '\\' {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}
