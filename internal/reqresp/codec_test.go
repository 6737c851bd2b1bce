package reqresp

import "testing"

func TestJSONCodecRoundTrip(t *testing.T) {
	type payload struct {
		Msg string `json:"msg"`
		N   int    `json:"n"`
	}

	c := JSONCodec{}
	b, err := c.Marshal(payload{Msg: "hello", N: 7})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out payload
	if err := c.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Msg != "hello" || out.N != 7 {
		t.Fatalf("round-trip mismatch: %+v", out)
	}
}

func TestJSONCodecUnmarshalError(t *testing.T) {
	c := JSONCodec{}
	var out struct{ Msg string }
	if err := c.Unmarshal([]byte("not json"), &out); err == nil {
		t.Fatal("expected an error unmarshaling invalid JSON")
	}
}
