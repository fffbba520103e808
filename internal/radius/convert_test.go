package radius_test

import (
	"errors"
	"testing"

	"github.com/radiusgo/radiusd/internal/radius"
)

func TestIPv4StringToBytesBare(t *testing.T) {
	t.Parallel()

	got, err := radius.IPv4StringToBytes("192.168.1.1")
	if err != nil {
		t.Fatalf("IPv4StringToBytes: %v", err)
	}
	want := []byte{192, 168, 1, 1}
	if string(got) != string(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// IPv4StringToBytes("192.1.10.0/30") -> [0, 30, 192, 1, 10, 0]
func TestIPv4StringToBytesPrefixed(t *testing.T) {
	t.Parallel()

	got, err := radius.IPv4StringToBytes("192.1.10.0/30")
	if err != nil {
		t.Fatalf("IPv4StringToBytes: %v", err)
	}
	want := []byte{0, 30, 192, 1, 10, 0}
	if string(got) != string(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestIPv4RoundTrip(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"10.0.0.1", "192.1.10.0/30", "255.255.255.255"} {
		b, err := radius.IPv4StringToBytes(s)
		if err != nil {
			t.Fatalf("IPv4StringToBytes(%q): %v", s, err)
		}
		back, err := radius.BytesToIPv4String(b)
		if err != nil {
			t.Fatalf("BytesToIPv4String: %v", err)
		}
		if back != s {
			t.Errorf("round trip %q -> %v -> %q", s, b, back)
		}
	}
}

func TestIPv4StringToBytesMalformed(t *testing.T) {
	t.Parallel()

	if _, err := radius.IPv4StringToBytes("not-an-ip"); !errors.Is(err, radius.ErrMalformedIPAddr) {
		t.Errorf("err = %v, want ErrMalformedIPAddr", err)
	}
	if _, err := radius.IPv4StringToBytes("10.0.0.1/notanumber"); !errors.Is(err, radius.ErrMalformedIPAddr) {
		t.Errorf("err = %v, want ErrMalformedIPAddr", err)
	}
}

func TestBytesToIPv4StringBadLength(t *testing.T) {
	t.Parallel()

	if _, err := radius.BytesToIPv4String([]byte{1, 2, 3}); !errors.Is(err, radius.ErrMalformedIPAddr) {
		t.Errorf("err = %v, want ErrMalformedIPAddr", err)
	}
}

// IPv6StringToBytes("fc66::1/64") -> 18 bytes beginning [0, 64, ...]
func TestIPv6StringToBytesPrefixed(t *testing.T) {
	t.Parallel()

	got, err := radius.IPv6StringToBytes("fc66::1/64")
	if err != nil {
		t.Fatalf("IPv6StringToBytes: %v", err)
	}
	if len(got) != 18 {
		t.Fatalf("len = %d, want 18", len(got))
	}
	if got[0] != 0 || got[1] != 64 {
		t.Errorf("prefix bytes = [%d %d], want [0 64]", got[0], got[1])
	}
}

func TestIPv6StringToBytesBare(t *testing.T) {
	t.Parallel()

	got, err := radius.IPv6StringToBytes("::1")
	if err != nil {
		t.Fatalf("IPv6StringToBytes: %v", err)
	}
	if len(got) != 16 {
		t.Fatalf("len = %d, want 16", len(got))
	}
}

func TestIPv6RoundTrip(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"fc66::1/64", "2001:db8::1", "::"} {
		b, err := radius.IPv6StringToBytes(s)
		if err != nil {
			t.Fatalf("IPv6StringToBytes(%q): %v", s, err)
		}
		back, err := radius.BytesToIPv6String(b)
		if err != nil {
			t.Fatalf("BytesToIPv6String: %v", err)
		}
		if back != s {
			t.Errorf("round trip %q -> %v -> %q", s, b, back)
		}
	}
}

func TestBytesToIPv6StringBadLength(t *testing.T) {
	t.Parallel()

	if _, err := radius.BytesToIPv6String([]byte{1, 2, 3}); !errors.Is(err, radius.ErrMalformedIPAddr) {
		t.Errorf("err = %v, want ErrMalformedIPAddr", err)
	}
}

func TestIntegerRoundTrip(t *testing.T) {
	t.Parallel()

	b := radius.IntegerToBytes(0xdeadbeef)
	var arr [4]byte
	copy(arr[:], b)
	if got := radius.BytesToInteger(arr); got != 0xdeadbeef {
		t.Errorf("got %#x, want 0xdeadbeef", got)
	}
}

func TestInteger64RoundTrip(t *testing.T) {
	t.Parallel()

	b := radius.Integer64ToBytes(0x0102030405060708)
	var arr [8]byte
	copy(arr[:], b)
	if got := radius.BytesToInteger64(arr); got != 0x0102030405060708 {
		t.Errorf("got %#x, want 0x0102030405060708", got)
	}
}

func TestBytesToTimestamp(t *testing.T) {
	t.Parallel()

	arr := [4]byte{0x00, 0x00, 0x00, 0x01}
	if got := radius.BytesToTimestamp(arr); got != 1 {
		t.Errorf("got %d, want 1", got)
	}
}
