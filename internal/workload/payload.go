package workload

import (
	"encoding/json"
	"math/rand/v2"

	"github.com/oklog/ulid/v2"
	"github.com/tidwall/gjson"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// RandomText returns n random alphanumeric bytes.
func RandomText(n int) []byte {
	if n <= 0 {
		return nil
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[rand.IntN(len(alphanumeric))]
	}
	return b
}

// NewSubscriptionID returns a fresh, lexically sortable subscription id.
func NewSubscriptionID() string {
	return ulid.Make().String()
}

type reqFilter struct {
	Limit int `json:"limit"`
}

// ReqMessage builds ["REQ",<sub>,{"limit":<limit>}].
func ReqMessage(sub string, limit int) []byte {
	data, _ := json.Marshal([]interface{}{"REQ", sub, reqFilter{Limit: limit}})
	return data
}

// CloseMessage builds ["CLOSE",<sub>].
func CloseMessage(sub string) []byte {
	data, _ := json.Marshal([]string{"CLOSE", sub})
	return data
}

// Relay message kinds.
const (
	KindEvent   = "EVENT"
	KindEOSE    = "EOSE"
	KindClosed  = "CLOSED"
	KindNotice  = "NOTICE"
	KindOK      = "OK"
	KindUnknown = ""
)

// Classify returns the kind of a relay message and the subscription id it
// refers to, if any. Messages that are not JSON arrays classify as
// KindUnknown.
func Classify(msg []byte) (kind, sub string) {
	if !gjson.ValidBytes(msg) {
		return KindUnknown, ""
	}
	parsed := gjson.ParseBytes(msg)
	if !parsed.IsArray() {
		return KindUnknown, ""
	}
	kind = parsed.Get("0").String()
	switch kind {
	case KindEvent, KindEOSE, KindClosed:
		return kind, parsed.Get("1").String()
	case KindNotice, KindOK:
		return kind, ""
	}
	return KindUnknown, ""
}
