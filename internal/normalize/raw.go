package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexString tolerates both JSON strings and JSON numbers, since the chain
// transmits handles and timestamps inconsistently across contract versions.
type FlexString string

// UnmarshalJSON accepts "42", 42 and null.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("field is neither string nor number: %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

// timestampOrZero parses an optional Unix-seconds field, defaulting to 0.
func timestampOrZero(f FlexString) int64 {
	if f == "" {
		return 0
	}
	ts, err := strconv.ParseInt(string(f), 10, 64)
	if err != nil || ts < 0 {
		return 0
	}
	return ts
}

// countOrZero parses an optional non-negative integer field, defaulting to 0.
func countOrZero(f FlexString) int {
	if f == "" {
		return 0
	}
	n, err := strconv.Atoi(string(f))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
