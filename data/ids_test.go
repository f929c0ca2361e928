package data

import "testing"

func TestQuineIdRoundTrip(t *testing.T) {
	q := QuineId{0xde, 0xad, 0xbe, 0xef}

	s := q.String()

	q2, err := ParseQuineId(s)
	if err != nil {
		t.Fatalf("ParseQuineId failed: %v", err)
	}

	if q2 != q {
		t.Errorf("ParseQuineId(%v) = %v, want %v", s, q2, q)
	}
}

func TestParseQuineIdInvalidLength(t *testing.T) {
	if _, err := ParseQuineId("abcd"); err == nil {
		t.Errorf("expected error for short hex string")
	}
}

func TestNodeRefHistorical(t *testing.T) {
	live := NodeRef{Namespace: "ns", QuineID: QuineId{1}}
	if live.IsHistorical() {
		t.Errorf("expected live ref to report IsHistorical() == false")
	}

	at := NewEventTime(1000, 0)
	historical := NodeRef{Namespace: "ns", QuineID: QuineId{1}, AtTime: &at}
	if !historical.IsHistorical() {
		t.Errorf("expected ref with AtTime set to report IsHistorical() == true")
	}
}
