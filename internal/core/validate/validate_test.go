package validate

import "testing"

func TestDisplayName(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		want  string
		valid bool
	}{
		{"trims and collapses whitespace", "  Ada   Lovelace  ", "Ada Lovelace", true},
		{"allows apostrophe and hyphen", "Jean-Luc O'Brien", "Jean-Luc O'Brien", true},
		{"rejects empty after trim", "   ", "", false},
		{"rejects too long", stringOfLen(25), stringOfLen(25), false},
		{"rejects disallowed punctuation", "Ada<script>", "Ada<script>", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := DisplayName(tc.raw)
			if ok != tc.valid {
				t.Fatalf("DisplayName(%q) valid = %v, want %v (got %q)", tc.raw, ok, tc.valid, got)
			}
			if ok && got != tc.want {
				t.Fatalf("DisplayName(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func stringOfLen(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}

func TestAccountName(t *testing.T) {
	if !AccountName("Ada_Lovelace-1") {
		t.Fatal("expected valid account name to pass")
	}
	if AccountName("ab") {
		t.Fatal("expected too-short account name to fail")
	}
	if AccountName("has space") {
		t.Fatal("expected account name with space to fail")
	}
}

func TestGameType(t *testing.T) {
	if !GameType("checkers") {
		t.Fatal("expected simple game type to pass")
	}
	if !GameType("tic-tac_toe2") {
		t.Fatal("expected alphanumeric-with-separators game type to pass")
	}
	if GameType("") {
		t.Fatal("expected empty game type to fail")
	}
	if GameType("bad game!") {
		t.Fatal("expected game type with space/punctuation to fail")
	}
}

func TestRoomCode(t *testing.T) {
	code, ok := RoomCode("wiz-ard!")
	if !ok {
		t.Fatalf("expected room code to be valid after stripping, got ok=%v code=%q", ok, code)
	}
	if code != "WIZARD" {
		t.Fatalf("RoomCode stripped/uppercased = %q, want WIZARD", code)
	}

	if _, ok := RoomCode("ab"); ok {
		t.Fatal("expected 2-char room code to fail the 3-10 length bound")
	}
	if _, ok := RoomCode("012345678901"); ok {
		t.Fatal("expected 12-char room code to fail the 3-10 length bound")
	}
}

func TestIsServerRoomID(t *testing.T) {
	if !IsServerRoomID("room_abc12345") {
		t.Fatal("expected well-formed server room id to match")
	}
	if IsServerRoomID("WIZARD") {
		t.Fatal("client invite code shape must not match the server id pattern")
	}
	if IsServerRoomID("room_zzz") {
		t.Fatal("non-hex suffix must not match")
	}
}
