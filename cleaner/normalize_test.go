package cleaner

import (
	"fmt"
	"testing"

	"github.com/use-agent/tweetscope/models"
)

func TestNormalize_LengthAndOrderPreserved(t *testing.T) {
	records := make([]models.RawRecord, 7)
	for i := range records {
		records[i] = models.RawRecord{"text": fmt.Sprintf("post-%d", i), "likes": float64(i)}
	}

	rows := Normalize(records)
	if len(rows) != len(records) {
		t.Fatalf("len = %d, want %d", len(rows), len(records))
	}
	for i, row := range rows {
		if row.PostText == nil || *row.PostText != fmt.Sprintf("post-%d", i) {
			t.Errorf("row %d text = %v", i, row.PostText)
		}
		if row.LikeCount == nil || *row.LikeCount != float64(i) {
			t.Errorf("row %d likes = %v", i, row.LikeCount)
		}
	}
}

func TestNormalize_EmptyRecordYieldsAbsentFields(t *testing.T) {
	rows := Normalize([]models.RawRecord{{}})
	if len(rows) != 1 {
		t.Fatalf("len = %d, want 1", len(rows))
	}
	if got := rows[0].Values(); len(got) != 0 {
		t.Fatalf("expected all fields absent, got %v", got)
	}
	if rows[0].AccountBio != nil {
		t.Fatal("accountBio must be absent, not defaulted")
	}
}

func TestNormalize_NilInput(t *testing.T) {
	rows := Normalize(nil)
	if rows == nil || len(rows) != 0 {
		t.Fatalf("Normalize(nil) = %#v, want empty non-nil slice", rows)
	}
}

func TestNormalizeOne_FieldMapping(t *testing.T) {
	rec := models.RawRecord{
		"user":     map[string]any{"description": "Go developer", "name": "ignored"},
		"text":     "hello, world",
		"url":      "https://x.com/a/status/1",
		"likes":    float64(10),
		"replies":  float64(2),
		"retweets": float64(3),
		"quotes":   float64(1),
		"views":    float64(900),
		"extra":    "dropped",
	}

	row := NormalizeOne(rec)
	checks := map[string]any{
		models.FieldAccountBio: "Go developer",
		models.FieldPostText:   "hello, world",
		models.FieldPostURL:    "https://x.com/a/status/1",
		models.FieldLikeCount:  float64(10),
		models.FieldReplyCount: float64(2),
		models.FieldShareCount: float64(3),
		models.FieldQuoteCount: float64(1),
		models.FieldViewCount:  float64(900),
	}
	got := row.Values()
	if len(got) != len(checks) {
		t.Fatalf("got %d fields, want %d: %v", len(got), len(checks), got)
	}
	for k, want := range checks {
		if got[k] != want {
			t.Errorf("%s = %v, want %v", k, got[k], want)
		}
	}
}

func TestNormalizeOne_MistypedFields(t *testing.T) {
	rec := models.RawRecord{
		"user":  "not-a-map",
		"text":  42,
		"likes": "many",
		"views": map[string]any{"count": 1},
	}
	row := NormalizeOne(rec)
	if got := row.Values(); len(got) != 0 {
		t.Fatalf("mistyped fields should be absent, got %v", got)
	}
}

func TestNormalizeOne_NonIntegralCountsKept(t *testing.T) {
	row := NormalizeOne(models.RawRecord{"likes": 2.5, "views": float64(1e20)})
	if row.LikeCount == nil || *row.LikeCount != 2.5 {
		t.Errorf("likes = %v, want 2.5", row.LikeCount)
	}
	if row.ViewCount == nil || *row.ViewCount != 1e20 {
		t.Errorf("views = %v, want 1e20", row.ViewCount)
	}
}
