package server

import (
	"context"
	"testing"
	"time"

	"matchserver/codec"
	"matchserver/config"
	"matchserver/mastermind"
	"matchserver/matcherrors"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	return cfg
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

func TestConnectRejectsDuplicatePseudo(t *testing.T) {
	srv := New(testConfig(), nil)
	ctx := context.Background()
	if err := srv.Connect(ctx, "alice", make(chan any, 4)); err != nil {
		t.Fatalf("first connect: %v", err)
	}
	if err := srv.Connect(ctx, "alice", make(chan any, 4)); err != matcherrors.ErrPseudoTaken {
		t.Fatalf("second connect = %v, want ErrPseudoTaken", err)
	}
}

func TestJoinMorpionPairsAndCreatesMatch(t *testing.T) {
	srv := New(testConfig(), nil)
	ctx := context.Background()
	aliceBox := make(chan any, 8)
	bobBox := make(chan any, 8)
	srv.Connect(ctx, "alice", aliceBox)
	srv.Connect(ctx, "bob", bobBox)

	if err := srv.JoinMorpion(ctx, "alice"); err != nil {
		t.Fatalf("alice join: %v", err)
	}
	select {
	case <-aliceBox:
		t.Fatal("alice should not be paired yet")
	default:
	}

	if err := srv.JoinMorpion(ctx, "bob"); err != nil {
		t.Fatalf("bob join: %v", err)
	}

	start1 := drain(t, aliceBox)
	start2 := drain(t, bobBox)
	if _, ok := start1.(codec.StartMsg); !ok {
		t.Errorf("alice got %+v, want StartMsg", start1)
	}
	if _, ok := start2.(codec.StartMsg); !ok {
		t.Errorf("bob got %+v, want StartMsg", start2)
	}
}

func TestJoinMorpionRejectsDoubleQueue(t *testing.T) {
	srv := New(testConfig(), nil)
	ctx := context.Background()
	srv.Connect(ctx, "alice", make(chan any, 4))
	if err := srv.JoinMorpion(ctx, "alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := srv.JoinMorpion(ctx, "alice"); err != matcherrors.ErrAlreadyQueued {
		t.Fatalf("second join = %v, want ErrAlreadyQueued", err)
	}
}

func TestJoinMastermindValidatesCode(t *testing.T) {
	srv := New(testConfig(), nil)
	ctx := context.Background()
	srv.Connect(ctx, "alice", make(chan any, 4))
	err := srv.JoinMastermind(ctx, "alice", mastermind.Code{"not-a-color", "red", "blue", "green"})
	if err == nil {
		t.Fatal("expected validation error for unknown color")
	}
}

func TestLeaveMorpionIsIdempotent(t *testing.T) {
	srv := New(testConfig(), nil)
	ctx := context.Background()
	srv.Connect(ctx, "alice", make(chan any, 4))
	srv.JoinMorpion(ctx, "alice")
	if !srv.LeaveMorpion("alice") {
		t.Fatal("expected first leave to report removal")
	}
	if srv.LeaveMorpion("alice") {
		t.Fatal("expected second leave to be a no-op")
	}
}

func TestSubmitMoveRejectsUnknownMatch(t *testing.T) {
	srv := New(testConfig(), nil)
	if err := srv.SubmitMove("alice", 999, 0); err != matcherrors.ErrMatchNotFound {
		t.Fatalf("SubmitMove = %v, want ErrMatchNotFound", err)
	}
}

func TestDisconnectDuringMatchNotifiesOpponent(t *testing.T) {
	srv := New(testConfig(), nil)
	ctx := context.Background()
	aliceBox := make(chan any, 8)
	bobBox := make(chan any, 8)
	srv.Connect(ctx, "alice", aliceBox)
	srv.Connect(ctx, "bob", bobBox)
	srv.JoinMorpion(ctx, "alice")
	srv.JoinMorpion(ctx, "bob")
	drain(t, aliceBox)
	drain(t, bobBox)

	srv.Disconnect(ctx, "alice")

	notice := drain(t, bobBox)
	if _, ok := notice.(codec.MatchInterruptedMsg); !ok {
		t.Fatalf("bob got %+v, want MatchInterruptedMsg", notice)
	}
}
