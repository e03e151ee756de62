package columns

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tahiry-mg/tahiry/internal/shared"
)

// Value is a discriminated union over the supported data types, resolved
// from the stored string payload plus the definition's declared type.
type Value struct {
	Type   DataType
	Text   string
	Number decimal.Decimal
	Date   time.Time
	Bool   bool
	JSON   json.RawMessage
}

// MarshalJSON emits the payload under its resolved type.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case TypeNumber:
		return json.Marshal(v.Number)
	case TypeDate:
		return json.Marshal(v.Date.Format("2006-01-02"))
	case TypeBoolean:
		return json.Marshal(v.Bool)
	case TypeJSON:
		if len(v.JSON) == 0 {
			return []byte("null"), nil
		}
		return v.JSON, nil
	default:
		return json.Marshal(v.Text)
	}
}

// ParseValue interprets a raw payload under the declared type. The column
// code only feeds error messages.
func ParseValue(code string, dataType DataType, raw string) (Value, error) {
	switch dataType {
	case TypeText:
		return Value{Type: TypeText, Text: raw}, nil
	case TypeNumber:
		n, err := decimal.NewFromString(raw)
		if err != nil {
			return Value{}, shared.Validationf(code, "%q is not a valid number", raw)
		}
		return Value{Type: TypeNumber, Number: n}, nil
	case TypeDate:
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return Value{}, shared.Validationf(code, "%q is not an ISO date", raw)
		}
		return Value{Type: TypeDate, Date: d}, nil
	case TypeBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Value{}, shared.Validationf(code, "%q is not a boolean", raw)
		}
		return Value{Type: TypeBoolean, Bool: b}, nil
	case TypeJSON:
		if !json.Valid([]byte(raw)) {
			return Value{}, shared.Validationf(code, "payload is not valid JSON")
		}
		return Value{Type: TypeJSON, JSON: json.RawMessage(raw)}, nil
	default:
		return Value{}, shared.Validationf(code, "unknown data type %q", dataType)
	}
}
