package mdns

import (
	"errors"
	"slices"
	"testing"
)

func TestAdvertisement_TXT(t *testing.T) {
	ad := Advertisement{Instance: "mediabridge", Port: 8090, BridgeID: "den", Version: "1.2.0", WSPath: "/ws"}

	want := []string{"bridge_id=den", "version=1.2.0", "ws_path=/ws"}
	if got := ad.TXT(); !slices.Equal(got, want) {
		t.Errorf("TXT() = %v, want %v", got, want)
	}

	ad.WSPath = ""
	if got := ad.TXT(); len(got) != 2 {
		t.Errorf("TXT() without ws path = %v, want 2 records", got)
	}
}

func TestRegister_Invalid(t *testing.T) {
	tests := []struct {
		name string
		ad   Advertisement
	}{
		{"empty instance", Advertisement{Port: 8090}},
		{"port zero", Advertisement{Instance: "mediabridge"}},
		{"port too high", Advertisement{Instance: "mediabridge", Port: 70000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Register(tt.ad, nil); !errors.Is(err, ErrInvalidAdvertisement) {
				t.Errorf("Register() error = %v, want ErrInvalidAdvertisement", err)
			}
		})
	}
}

func TestRegister_Shutdown(t *testing.T) {
	adv, err := Register(Advertisement{Instance: "mediabridge-test", Port: 18090, BridgeID: "test", Version: "dev"}, nil)
	if err != nil {
		// Multicast is often unavailable in CI sandboxes.
		t.Skipf("mDNS unavailable: %v", err)
	}
	adv.Shutdown()
	adv.Shutdown()
}

func TestShutdown_Nil(t *testing.T) {
	var adv *Advertiser
	adv.Shutdown()
}
