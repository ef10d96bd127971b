package redis

import (
	"strings"
	"testing"
)

func TestGeocodeKey_NormalizesAddress(t *testing.T) {
	a := GeocodeKey("  City Hospital, Colombo ")
	b := GeocodeKey("city hospital, colombo")

	if a != b {
		t.Errorf("expected equal keys, got %s and %s", a, b)
	}
	if !strings.HasPrefix(a, "cache:geocode:") {
		t.Errorf("unexpected prefix in %s", a)
	}
	if len(a) != len("cache:geocode:")+40 {
		t.Errorf("expected sha1 hex suffix, got %s", a)
	}
	if GeocodeKey("other") == a {
		t.Error("expected different addresses to get different keys")
	}
}

func TestAcceptLockKey(t *testing.T) {
	if got := AcceptLockKey("appt-1"); got != "lock:accept:appt-1" {
		t.Errorf("unexpected lock key %s", got)
	}
}

func TestNewLockStore_OwnerPerProcess(t *testing.T) {
	a := NewLockStore(nil)
	b := NewLockStore(nil)
	if a.owner == "" || a.owner == b.owner {
		t.Errorf("expected distinct owner tokens, got %q and %q", a.owner, b.owner)
	}
}
