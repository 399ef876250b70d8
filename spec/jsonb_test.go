package spec

import (
	"reflect"
	"testing"
)

func TestStringListScan(t *testing.T) {
	t.Run("null column yields an empty list", func(t *testing.T) {
		var l StringList
		if err := l.Scan(nil); err != nil {
			t.Fatalf("scan of null column returned error: %v", err)
		}
		if len(l) != 0 {
			t.Errorf("got %v, want empty list", l)
		}
	})

	t.Run("jsonb bytes round-trip", func(t *testing.T) {
		orig := StringList{"priority support", "custom storefront"}
		value, err := orig.Value()
		if err != nil {
			t.Fatalf("value returned error: %v", err)
		}
		var got StringList
		if err := got.Scan(value); err != nil {
			t.Fatalf("scan returned error: %v", err)
		}
		if !reflect.DeepEqual(got, orig) {
			t.Errorf("got %v, want %v", got, orig)
		}
	})
}
