package envutil

import (
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_INT", "abc")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 7 {
		t.Fatalf("got=%d want=7", got)
	}
	t.Setenv("ENVUTIL_TEST_INT", " 42 ")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 42 {
		t.Fatalf("got=%d want=42", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_BOOL", "off")
	if Bool("ENVUTIL_TEST_BOOL", true) {
		t.Fatalf("want false for off")
	}
	t.Setenv("ENVUTIL_TEST_BOOL", "maybe")
	if !Bool("ENVUTIL_TEST_BOOL", true) {
		t.Fatalf("want default for unrecognized value")
	}
}

func TestSecondsAndList(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_SECS", "90")
	if got := Seconds("ENVUTIL_TEST_SECS", time.Second); got != 90*time.Second {
		t.Fatalf("got=%s want=90s", got)
	}
	t.Setenv("ENVUTIL_TEST_LIST", "a, ,b,")
	got := List("ENVUTIL_TEST_LIST", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("got=%v want=[a b]", got)
	}
}
