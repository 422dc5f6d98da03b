package match

import (
	"testing"
	"time"

	"matchserver/codec"
	"matchserver/mastermind"
)

func newParticipant(pseudo string) Participant {
	return Participant{Pseudo: pseudo, Mailbox: NewMailbox(16), Rating: 1200}
}

func drain(t *testing.T, ch chan any) any {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestMorpionHappyPath(t *testing.T) {
	p1 := newParticipant("alice")
	p2 := newParticipant("bob")
	var finished *Match
	m := NewMorpionMatch(1, p1, p2, func(fm *Match) { finished = fm })
	go m.Run(Deps{})

	drain(t, p1.Mailbox) // START
	drain(t, p2.Mailbox) // START

	moves := []struct {
		pseudo   string
		position int
	}{
		{"alice", 0}, {"bob", 1},
		{"alice", 4}, {"bob", 2},
		{"alice", 8},
	}
	for _, mv := range moves {
		m.Actions <- Action{Type: ActionMove, Pseudo: mv.pseudo, Position: mv.position}
		if mv.pseudo != moves[len(moves)-1].pseudo || mv.position != moves[len(moves)-1].position {
			// every move but the last broadcasts to the opponent only
			if mv.pseudo == "alice" {
				drain(t, p2.Mailbox)
			} else {
				drain(t, p1.Mailbox)
			}
		}
	}
	// final winning move broadcasts MOVE then END to both
	drain(t, p2.Mailbox) // MOVE
	end1 := drain(t, p1.Mailbox)
	end2 := drain(t, p2.Mailbox)

	if e, ok := end1.(codec.EndMsg); !ok || e.Result != "alice" {
		t.Errorf("player1 END = %+v, want result alice", end1)
	}
	if e, ok := end2.(codec.EndMsg); !ok || e.Result != "alice" {
		t.Errorf("player2 END = %+v, want result alice", end2)
	}

	<-m.Done
	if finished == nil || finished.Result != "alice" {
		t.Error("expected onFinish to fire with result alice")
	}
}

func TestMorpionRejectsOutOfTurnMove(t *testing.T) {
	p1 := newParticipant("alice")
	p2 := newParticipant("bob")
	m := NewMorpionMatch(2, p1, p2, nil)
	go m.Run(Deps{})
	drain(t, p1.Mailbox)
	drain(t, p2.Mailbox)

	m.Actions <- Action{Type: ActionMove, Pseudo: "bob", Position: 0}

	select {
	case msg := <-p1.Mailbox:
		t.Fatalf("expected no broadcast for rejected out-of-turn move, got %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}

	m.Actions <- Action{Type: ActionDisconnect, Pseudo: "alice"}
	<-m.Done
}

func TestMastermindSoloSolveWins(t *testing.T) {
	p1 := newParticipant("alice")
	p2 := newParticipant("bob")
	aliceCode := mastermind.Code{"red", "green", "blue", "yellow"}
	bobCode := mastermind.Code{"yellow", "yellow", "red", "green"}
	m := NewMastermindMatch(3, p1, p2, aliceCode, bobCode, 4, 10, nil)
	go m.Run(Deps{})
	drain(t, p1.Mailbox)
	drain(t, p2.Mailbox)

	// bob misses alice's code on his 1st attempt, forfeiting that round
	m.Actions <- Action{Type: ActionGuess, Pseudo: "bob", Guess: mastermind.Code{"blue", "blue", "blue", "blue"}}
	drain(t, p2.Mailbox) // feedback to bob
	drain(t, p1.Mailbox) // opponent guess notification to alice

	// alice then solves bob's code on her own 1st attempt: bob already
	// missed his matching round, so alice wins outright
	m.Actions <- Action{Type: ActionGuess, Pseudo: "alice", Guess: bobCode}

	fb := drain(t, p1.Mailbox)
	if f, ok := fb.(codec.MastermindFeedbackMsg); !ok || f.BlackPins != 4 {
		t.Fatalf("feedback = %+v, want 4 black pins", fb)
	}
	og := drain(t, p2.Mailbox)
	if _, ok := og.(codec.MastermindOpponentGuessMsg); !ok {
		t.Fatalf("expected opponent guess notification, got %+v", og)
	}
	end1 := drain(t, p1.Mailbox)
	end2 := drain(t, p2.Mailbox)
	if e, ok := end1.(codec.MastermindEndMsg); !ok || e.Result != "alice" {
		t.Errorf("END = %+v, want result alice", end1)
	}
	_ = end2

	// rating update follows (no store configured -> computed locally)
	drain(t, p1.Mailbox)
	drain(t, p2.Mailbox)

	<-m.Done
}

func TestMastermindTieBreakEqualAttempts(t *testing.T) {
	p1 := newParticipant("alice")
	p2 := newParticipant("bob")
	aliceCode := mastermind.Code{"red", "green", "blue", "yellow"}
	bobCode := mastermind.Code{"purple", "orange", "red", "green"}
	m := NewMastermindMatch(4, p1, p2, aliceCode, bobCode, 4, 10, nil)
	go m.Run(Deps{})
	drain(t, p1.Mailbox)
	drain(t, p2.Mailbox)

	// alice solves bob's code on her 1st guess, but doesn't finalize until bob solves too
	m.Actions <- Action{Type: ActionGuess, Pseudo: "alice", Guess: bobCode}
	drain(t, p1.Mailbox) // feedback
	drain(t, p2.Mailbox) // opponent guess notification
	select {
	case msg := <-p1.Mailbox:
		t.Fatalf("expected match to stay open pending bob's guess, got %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}

	// bob solves alice's code on his 1st guess too -> draw
	m.Actions <- Action{Type: ActionGuess, Pseudo: "bob", Guess: aliceCode}
	drain(t, p2.Mailbox) // feedback
	drain(t, p1.Mailbox) // opponent guess notification
	end1 := drain(t, p1.Mailbox)
	if e, ok := end1.(codec.MastermindEndMsg); !ok || e.Result != "draw" {
		t.Errorf("END = %+v, want result draw", end1)
	}
}

func TestDisconnectInterruptsAndSkipsRanking(t *testing.T) {
	p1 := newParticipant("alice")
	p2 := newParticipant("bob")
	aliceCode := mastermind.Code{"red", "green", "blue", "yellow"}
	bobCode := mastermind.Code{"purple", "orange", "red", "green"}
	m := NewMastermindMatch(5, p1, p2, aliceCode, bobCode, 4, 10, nil)
	go m.Run(Deps{})
	drain(t, p1.Mailbox)
	drain(t, p2.Mailbox)

	m.Actions <- Action{Type: ActionDisconnect, Pseudo: "alice"}

	notice := drain(t, p2.Mailbox)
	if _, ok := notice.(codec.MatchInterruptedMsg); !ok {
		t.Fatalf("expected MATCH_INTERRUPTED, got %+v", notice)
	}
	<-m.Done
	if m.Result != "interrupted" {
		t.Errorf("Result = %q, want interrupted", m.Result)
	}

	// no rating update message should have been queued for either side
	select {
	case msg := <-p1.Mailbox:
		t.Fatalf("unexpected message to disconnected player: %+v", msg)
	default:
	}
}
