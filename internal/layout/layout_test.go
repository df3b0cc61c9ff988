package layout

import "testing"

func TestDefaultLayoutValid(t *testing.T) {
	if err := Validate(Default); err != nil {
		t.Fatalf("Validate(Default): %v", err)
	}
}

func TestValidateCatchesOverlap(t *testing.T) {
	bad := []RangeDescriptor{
		{Name: "a", Start: 0x10_0000, End: 0x20_0000},
		{Name: "b", Start: 0x18_0000, End: 0x28_0000},
	}
	if err := Validate(bad); err == nil {
		t.Fatalf("expected overlap error")
	}
}

func TestValidateCatchesMisalignment(t *testing.T) {
	bad := []RangeDescriptor{
		{Name: "a", Start: 0x1234, End: 0x20_0000},
	}
	if err := Validate(bad); err == nil {
		t.Fatalf("expected alignment error")
	}
}

func TestLookupMMIOIsDevice(t *testing.T) {
	attrs := Lookup(Default, MMIOStart+0x1000)
	if attrs.MemAttr != MemDevice {
		t.Fatalf("got MemAttr %v, want MemDevice", attrs.MemAttr)
	}
	if !attrs.ExecuteNever {
		t.Fatalf("MMIO range must be PXN")
	}
}

func TestLookupOutsideLayoutDefaultsRWPXN(t *testing.T) {
	attrs := Lookup(Default, 0xFFFF_0000)
	if attrs.AccessRO {
		t.Fatalf("addresses outside the layout must default to RW")
	}
	if !attrs.ExecuteNever {
		t.Fatalf("addresses outside the layout must default to PXN")
	}
}

func TestLookupKernelCodeIsROExecutable(t *testing.T) {
	attrs := Lookup(Default, KernelCodeStart)
	if !attrs.AccessRO {
		t.Fatalf("kernel code must be RO")
	}
	if attrs.ExecuteNever {
		t.Fatalf("kernel code must be executable")
	}
}
