// Package cleaner projects raw provider records onto the fixed export shape.
package cleaner

import "github.com/use-agent/tweetscope/models"

// Source keys read from a provider record.
const (
	keyUser        = "user"
	keyDescription = "description"
	keyText        = "text"
	keyURL         = "url"
	keyLikes       = "likes"
	keyReplies     = "replies"
	keyRetweets    = "retweets"
	keyQuotes      = "quotes"
	keyViews       = "views"
)

// Normalize maps every raw record onto a NormalizedRow.
// Output row i is derived only from input record i; the result always has
// the same length as the input and is never nil.
func Normalize(records []models.RawRecord) []models.NormalizedRow {
	rows := make([]models.NormalizedRow, len(records))
	for i, rec := range records {
		rows[i] = NormalizeOne(rec)
	}
	return rows
}

// NormalizeOne projects a single record. Missing or mistyped source fields
// leave the corresponding output field nil.
func NormalizeOne(rec models.RawRecord) models.NormalizedRow {
	user := rec.Map(keyUser)

	return models.NormalizedRow{
		AccountBio: stringPtr(user, keyDescription),
		PostText:   stringPtr(rec, keyText),
		PostURL:    stringPtr(rec, keyURL),
		LikeCount:  numberPtr(rec, keyLikes),
		ReplyCount: numberPtr(rec, keyReplies),
		ShareCount: numberPtr(rec, keyRetweets),
		QuoteCount: numberPtr(rec, keyQuotes),
		ViewCount:  numberPtr(rec, keyViews),
	}
}

func stringPtr(rec models.RawRecord, key string) *string {
	s, ok := rec.String(key)
	if !ok {
		return nil
	}
	return &s
}

func numberPtr(rec models.RawRecord, key string) *float64 {
	n, ok := rec.Number(key)
	if !ok {
		return nil
	}
	return &n
}
