package storage

import (
	"fmt"
	"strings"
	"testing"
)

func TestPage(t *testing.T) {
	ids := make([]string, 30)
	for i := range ids {
		ids[i] = fmt.Sprintf("id%02d", i)
	}
	self := func(s string) string { return s }

	tests := []struct {
		name          string
		after, before string
		limit         int
		wantFirst     string
		wantLen       int
		wantMore      bool
	}{
		{name: "default limit", wantFirst: "id00", wantLen: 20, wantMore: true},
		{name: "after", after: "id09", limit: 5, wantFirst: "id10", wantLen: 5, wantMore: true},
		{name: "after near end", after: "id25", limit: 10, wantFirst: "id26", wantLen: 4},
		{name: "before", before: "id03", wantFirst: "id00", wantLen: 3},
		{name: "before first", before: "id00"},
		{name: "unknown cursor", after: "nope"},
		{name: "limit capped", limit: 1000, wantFirst: "id00", wantLen: 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, more := Page(ids, self, tt.after, tt.before, tt.limit)
			if len(got) != tt.wantLen || more != tt.wantMore {
				t.Fatalf("Page = %d records (more=%v), want %d (more=%v)", len(got), more, tt.wantLen, tt.wantMore)
			}
			if tt.wantLen > 0 && got[0] != tt.wantFirst {
				t.Errorf("first = %s, want %s: %s", got[0], tt.wantFirst, strings.Join(got, ","))
			}
		})
	}
}

func TestClampLimit(t *testing.T) {
	for in, want := range map[int]int{-1: 20, 0: 20, 7: 7, 100: 100, 101: 100} {
		if got := ClampLimit(in); got != want {
			t.Errorf("ClampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
