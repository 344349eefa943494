package symbol

import "testing"

func TestSimhash_Deterministic(t *testing.T) {
	a := Simhash("HashPassword", "string HashPassword(string input)")
	b := Simhash("HashPassword", "string HashPassword(string input)")
	if a != b {
		t.Fatalf("Simhash not deterministic: %x != %x", a, b)
	}
	if a == 0 {
		t.Fatal("Simhash of non-empty input is zero")
	}
}

func TestSimhash_SimilarInputsAreClose(t *testing.T) {
	sym := NewSymbol(1, "main", "sha", "a.cs", "HashPassword", "Auth.HashPassword", KindMethod, "csharp")

	a := NewFingerprint(sym, FingerprintSimhash, Simhash("HashPassword", "string HashPassword(string input) return Hash(input)"))
	b := NewFingerprint(sym, FingerprintSimhash, Simhash("HashPassword", "string HashPassword(string value) return Hash(value)"))
	c := NewFingerprint(sym, FingerprintSimhash, Simhash("ParseConfig", "Config ParseConfig(Reader reader) yaml decode"))

	closeDist := a.HammingDistance(b)
	farDist := a.HammingDistance(c)
	if closeDist >= farDist {
		t.Errorf("expected similar inputs closer than dissimilar: %d >= %d", closeDist, farDist)
	}
}

func TestFingerprint_Bands(t *testing.T) {
	sym := NewSymbol(1, "main", "sha", "a.cs", "X", "X", KindClass, "csharp")
	fp := NewFingerprint(sym, FingerprintSimhash, 0x1111222233334444)

	bands := fp.Bands()
	if bands[0] != 0x4444 || bands[1] != 0x3333 || bands[2] != 0x2222 || bands[3] != 0x1111 {
		t.Errorf("unexpected bands: %x", bands)
	}

	// The bands are disjoint slices that reassemble into the fingerprint.
	var rebuilt uint64
	for i, band := range bands {
		rebuilt |= uint64(band) << (uint(i) * 16)
	}
	if rebuilt != fp.Bits() {
		t.Errorf("bands do not reassemble: %x != %x", rebuilt, fp.Bits())
	}
}

func TestHammingDistance(t *testing.T) {
	sym := NewSymbol(1, "main", "sha", "a.cs", "X", "X", KindClass, "csharp")
	a := NewFingerprint(sym, FingerprintSimhash, 0b1010)
	b := NewFingerprint(sym, FingerprintSimhash, 0b0110)
	if d := a.HammingDistance(b); d != 2 {
		t.Errorf("HammingDistance = %d, want 2", d)
	}
	if d := a.HammingDistance(a); d != 0 {
		t.Errorf("HammingDistance to self = %d, want 0", d)
	}
}
