package mastermind

import "testing"

func TestCheckExactMatch(t *testing.T) {
	code := Code{"red", "green", "blue", "yellow"}
	fb, err := Check(code, code)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if fb.Exact != 4 || fb.Misplaced != 0 {
		t.Errorf("got %+v, want exact=4 misplaced=0", fb)
	}
	if !fb.Solved(4) {
		t.Error("expected Solved(4) to be true")
	}
}

func TestCheckAllMisplaced(t *testing.T) {
	code := Code{"red", "green", "blue", "yellow"}
	guess := Code{"yellow", "blue", "green", "red"}
	fb, err := Check(code, guess)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if fb.Exact != 0 || fb.Misplaced != 4 {
		t.Errorf("got %+v, want exact=0 misplaced=4", fb)
	}
}

func TestCheckDuplicateColors(t *testing.T) {
	code := Code{"red", "red", "blue", "blue"}
	guess := Code{"red", "blue", "red", "green"}
	fb, err := Check(code, guess)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	// position 0: red/red exact. position 2: blue vs red (no). position 3: blue vs green (no).
	// remaining code after exact consumption: [_, red, blue, blue]; remaining guess: [_, blue, red, green]
	// guess[1]=blue matches code[2 or 3]=blue -> misplaced; guess[2]=red matches code[1]=red -> misplaced
	if fb.Exact != 1 || fb.Misplaced != 2 {
		t.Errorf("got %+v, want exact=1 misplaced=2", fb)
	}
}

func TestCheckLengthMismatch(t *testing.T) {
	_, err := Check(Code{"red"}, Code{"red", "blue"})
	if err == nil {
		t.Error("expected error on length mismatch")
	}
}

func TestExactPlusMisplacedNeverExceedsLength(t *testing.T) {
	codes := []Code{
		{"red", "green", "blue", "yellow"},
		{"red", "red", "red", "red"},
		{"purple", "orange", "red", "green"},
	}
	for _, code := range codes {
		for _, guess := range codes {
			fb, err := Check(code, guess)
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if fb.Exact+fb.Misplaced > len(code) {
				t.Errorf("code=%v guess=%v: exact+misplaced=%d exceeds length %d", code, guess, fb.Exact+fb.Misplaced, len(code))
			}
		}
	}
}

func TestValidateCode(t *testing.T) {
	if err := ValidateCode(Code{"red", "green", "blue", "yellow"}, 4, DefaultColors); err != nil {
		t.Errorf("expected valid code, got %v", err)
	}
	if err := ValidateCode(Code{"red", "green"}, 4, DefaultColors); err == nil {
		t.Error("expected length error")
	}
	if err := ValidateCode(Code{"red", "green", "blue", "pink"}, 4, DefaultColors); err == nil {
		t.Error("expected unknown color error")
	}
}
