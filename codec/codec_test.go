package codec

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"matchserver/matcherrors"
)

func TestReadEnvelopeDecodesAction(t *testing.T) {
	r := NewReader(strings.NewReader(`{"action":"JOIN","pseudo":"alice"}`+"\n"), 0)
	env, err := r.ReadEnvelope()
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}
	if env.Action != "JOIN" {
		t.Errorf("Action = %q, want JOIN", env.Action)
	}
	var msg JoinMsg
	if err := env.Decode(&msg); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if msg.Pseudo != "alice" {
		t.Errorf("Pseudo = %q, want alice", msg.Pseudo)
	}
}

func TestReadEnvelopeEOF(t *testing.T) {
	r := NewReader(strings.NewReader(""), 0)
	_, err := r.ReadEnvelope()
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReadEnvelopeTooLong(t *testing.T) {
	huge := strings.Repeat("a", 100) + "\n"
	r := NewReader(strings.NewReader(huge), 10)
	_, err := r.ReadEnvelope()
	if !errors.Is(err, matcherrors.ErrLineTooLong) {
		t.Errorf("expected ErrLineTooLong, got %v", err)
	}
}

func TestReadEnvelopeMalformed(t *testing.T) {
	r := NewReader(strings.NewReader("not json\n"), 0)
	_, err := r.ReadEnvelope()
	if err == nil {
		t.Error("expected error on malformed frame")
	}
}

func TestWriteMessageAppendsNewline(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteMessage(ConnectReplyMsg{Action: "CONNECT", Status: "OK"}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("expected trailing newline")
	}
	if !strings.Contains(buf.String(), `"status":"OK"`) {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteMessage(MoveMsg{Action: "MOVE", Pseudo: "a", MatchID: 7, Position: 4})

	r := NewReader(&buf, 0)
	env, err := r.ReadEnvelope()
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}
	var msg MoveMsg
	if err := env.Decode(&msg); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if msg.MatchID != 7 || msg.Position != 4 {
		t.Errorf("got %+v", msg)
	}
}
