package bitfield

import "testing"

type pteAttrsFixture struct {
	Valid    bool   `bitfield:"1"`
	Table    bool   `bitfield:"1"`
	AttrIndx uint8  `bitfield:"3"`
	AP       uint8  `bitfield:"2"`
	SH       uint8  `bitfield:"2"`
	AF       bool   `bitfield:"1"`
	PXN      bool   `bitfield:"1"`
	Output   uint32 `bitfield:"20"`
}

func TestPackUnpackRoundTrip(t *testing.T) {
	in := pteAttrsFixture{
		Valid:    true,
		Table:    true,
		AttrIndx: 1,
		AP:       0,
		SH:       3,
		AF:       true,
		PXN:      true,
		Output:   0x3F003,
	}

	packed, err := Pack(&in, &Config{NumBits: 32})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	var out pteAttrsFixture
	if err := Unpack(packed, &out); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestPackRejectsOverflowingField(t *testing.T) {
	in := struct {
		Tiny uint8 `bitfield:"2"`
	}{Tiny: 7}
	if _, err := Pack(&in, nil); err == nil {
		t.Fatalf("expected error packing value exceeding field width")
	}
}

func TestPackRejectsExceedingNumBits(t *testing.T) {
	in := struct {
		A uint32 `bitfield:"40"`
		B uint32 `bitfield:"40"`
	}{}
	if _, err := Pack(&in, &Config{NumBits: 64}); err == nil {
		t.Fatalf("expected error when total bits exceed NumBits")
	}
}

func TestPackSkipsUntaggedFields(t *testing.T) {
	in := struct {
		Hidden int
		Kept   uint8 `bitfield:"4"`
	}{Hidden: 999, Kept: 9}
	packed, err := Pack(&in, nil)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if packed != 9 {
		t.Fatalf("got %d, want 9 (untagged field must not contribute bits)", packed)
	}
}
