package models

import (
	"encoding/json"
	"math"
)

// RawRecord is one untrusted item returned by the scraping provider.
// Access it only through the typed helpers, which never panic: a missing or
// mistyped key reports ok=false.
type RawRecord map[string]any

// String returns the string stored at key.
func (r RawRecord) String(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	s, ok := r[key].(string)
	return s, ok
}

// Number returns the finite number stored at key. Integral and fractional
// values are kept as-is; NaN and infinities report ok=false.
func (r RawRecord) Number(key string) (float64, bool) {
	if r == nil {
		return 0, false
	}
	var f float64
	switch v := r[key].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case int32:
		f = float64(v)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Map returns the nested mapping at key. A missing or mistyped value yields
// an empty, non-nil record.
func (r RawRecord) Map(key string) RawRecord {
	if r == nil {
		return RawRecord{}
	}
	switch v := r[key].(type) {
	case map[string]any:
		return RawRecord(v)
	case RawRecord:
		return v
	default:
		return RawRecord{}
	}
}

// Field names of NormalizedRow, as used in JSON and CSV exports.
const (
	FieldAccountBio = "accountBio"
	FieldPostText   = "postText"
	FieldPostURL    = "postUrl"
	FieldLikeCount  = "likeCount"
	FieldReplyCount = "replyCount"
	FieldShareCount = "shareCount"
	FieldQuoteCount = "quoteCount"
	FieldViewCount  = "viewCount"
)

// NormalizedRow is the flat projection of one RawRecord.
// A nil field means the source record did not carry it.
type NormalizedRow struct {
	AccountBio *string  `json:"accountBio,omitempty"`
	PostText   *string  `json:"postText,omitempty"`
	PostURL    *string  `json:"postUrl,omitempty"`
	LikeCount  *float64 `json:"likeCount,omitempty"`
	ReplyCount *float64 `json:"replyCount,omitempty"`
	ShareCount *float64 `json:"shareCount,omitempty"`
	QuoteCount *float64 `json:"quoteCount,omitempty"`
	ViewCount  *float64 `json:"viewCount,omitempty"`
}

// Values returns the present fields keyed by export name.
// Values are either string or float64.
func (r NormalizedRow) Values() map[string]any {
	out := make(map[string]any, 8)
	putString := func(name string, v *string) {
		if v != nil {
			out[name] = *v
		}
	}
	putNumber := func(name string, v *float64) {
		if v != nil {
			out[name] = *v
		}
	}

	putString(FieldAccountBio, r.AccountBio)
	putString(FieldPostText, r.PostText)
	putString(FieldPostURL, r.PostURL)
	putNumber(FieldLikeCount, r.LikeCount)
	putNumber(FieldReplyCount, r.ReplyCount)
	putNumber(FieldShareCount, r.ShareCount)
	putNumber(FieldQuoteCount, r.QuoteCount)
	putNumber(FieldViewCount, r.ViewCount)
	return out
}
