package zendesk

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimestampToleratesBadValues(t *testing.T) {
	var payload struct {
		A Timestamp `json:"a"`
		B Timestamp `json:"b"`
		C Timestamp `json:"c"`
		D Timestamp `json:"d"`
	}
	raw := `{"a":"2026-01-02T03:04:05Z","b":"not a date","c":null,"d":""}`
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC); !payload.A.Time().Equal(want) {
		t.Fatalf("a = %v, want %v", payload.A.Time(), want)
	}
	for name, ts := range map[string]Timestamp{"b": payload.B, "c": payload.C, "d": payload.D} {
		if !ts.IsZero() {
			t.Fatalf("%s should decode to the zero timestamp, got %v", name, ts.Time())
		}
	}
}

func TestStringIDAcceptsStringsAndNumbers(t *testing.T) {
	var payload struct {
		S StringID `json:"s"`
		N StringID `json:"n"`
		Z StringID `json:"z"`
	}
	if err := json.Unmarshal([]byte(`{"s":"cat-7","n":12345678901234,"z":null}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.S.String() != "cat-7" {
		t.Fatalf("s = %q", payload.S)
	}
	if payload.N.String() != "12345678901234" {
		t.Fatalf("n = %q", payload.N)
	}
	if n, ok := payload.N.Int64(); !ok || n != 12345678901234 {
		t.Fatalf("n numeric = %d %v", n, ok)
	}
	if _, ok := payload.S.Int64(); ok {
		t.Fatalf("non-numeric ID must not report a numeric value")
	}
	if payload.Z.String() != "" {
		t.Fatalf("null ID must decode to empty, got %q", payload.Z)
	}
}

func TestEntityDecodeRetainsRawPayload(t *testing.T) {
	raw := `{"id":5,"subject":"printer on fire","status":"open","custom_field":"kept only in raw"}`
	var ticket Ticket
	if err := json.Unmarshal([]byte(raw), &ticket); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ticket.ID != 5 || ticket.Subject != "printer on fire" {
		t.Fatalf("structured fields lost: %+v", ticket)
	}
	var back map[string]any
	if err := json.Unmarshal(ticket.Raw, &back); err != nil {
		t.Fatalf("raw not valid JSON: %v", err)
	}
	if back["custom_field"] != "kept only in raw" {
		t.Fatalf("raw payload dropped unknown fields: %v", back)
	}
}

func TestChildEventIsComment(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{`{"id":1,"event_type":"Comment"}`, true},
		{`{"id":2,"type":"Comment"}`, true},
		{`{"id":3,"event_type":"Change","type":"Comment"}`, false},
		{`{"id":4,"event_type":"Audit"}`, false},
		{`{"id":5}`, false},
	}
	for _, tc := range cases {
		var ce ChildEvent
		if err := json.Unmarshal([]byte(tc.raw), &ce); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.raw, err)
		}
		if got := ce.IsComment(); got != tc.want {
			t.Fatalf("IsComment(%s) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestPageNextURLPrefersDirectLink(t *testing.T) {
	p := CommentsPage{NextPage: "/direct", Links: Links{Next: "/from-links"}}
	if got := p.NextURL(); got != "/direct" {
		t.Fatalf("NextURL = %q, want /direct", got)
	}
	p = CommentsPage{Links: Links{Next: "/from-links"}}
	if got := p.NextURL(); got != "/from-links" {
		t.Fatalf("NextURL = %q, want /from-links", got)
	}
	p = CommentsPage{}
	if got := p.NextURL(); got != "" {
		t.Fatalf("NextURL = %q, want empty", got)
	}
}
