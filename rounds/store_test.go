package rounds

import "testing"

func TestDefaultPPSFallback(t *testing.T) {
	if defaultPPSScale != 18 {
		t.Fatalf("fallback scale must be 18 per spec, got %d", defaultPPSScale)
	}
	want := "1000000000000000000"
	if defaultPPSValue.String() != want {
		t.Fatalf("fallback value = %s, want %s", defaultPPSValue.String(), want)
	}
}
