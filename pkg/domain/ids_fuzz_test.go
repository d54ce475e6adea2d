package domain

import "testing"

// FuzzParseAddress verifies parsing never panics and accepted values
// round-trip unchanged.
func FuzzParseAddress(f *testing.F) {
	f.Add("")
	f.Add("investor-1")
	f.Add("  padded  ")
	f.Add("'; DROP TABLE assets;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		addr, err := ParseAddress(input)
		if err != nil {
			return
		}
		if addr.IsZero() {
			t.Error("accepted address must not be zero")
		}
		roundTrip, err := ParseAddress(addr.String())
		if err != nil {
			t.Errorf("accepted address failed round-trip: %v", err)
		}
		if roundTrip != addr {
			t.Error("round-trip changed the address")
		}
	})
}

// FuzzParseAssetID verifies parsing never panics and accepted values
// round-trip through their decimal form.
func FuzzParseAssetID(f *testing.F) {
	f.Add("")
	f.Add("0")
	f.Add("42")
	f.Add("-1")
	f.Add("18446744073709551615")
	f.Add("18446744073709551616")
	f.Add("0x10")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseAssetID(input)
		if err != nil {
			return
		}
		roundTrip, err := ParseAssetID(id.String())
		if err != nil {
			t.Errorf("accepted id failed round-trip: %v", err)
		}
		if roundTrip != id {
			t.Error("round-trip changed the id")
		}
	})
}
