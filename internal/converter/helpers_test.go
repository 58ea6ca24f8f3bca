package converter

import (
	"math"
	"testing"

	"github.com/KevinKickass/KilnTelemetry/internal/types"
)

func numbers(kv map[string]float64) Fields {
	f := make(Fields, len(kv))
	for k, v := range kv {
		f[k] = types.DecodedField{Value: types.NumberValue(v), DisplayName: k}
	}
	return f
}

func assertFloat(t *testing.T, r Reading, key string, want float64) {
	t.Helper()
	v, ok := r[key]
	if !ok {
		t.Errorf("%s missing from reading %v", key, r)
		return
	}
	got, ok := v.(float64)
	if !ok {
		t.Errorf("%s: expected float64, got %T", key, v)
		return
	}
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", key, got, want)
	}
}

func assertAbsent(t *testing.T, r Reading, keys ...string) {
	t.Helper()
	for _, key := range keys {
		if _, ok := r[key]; ok {
			t.Errorf("%s should be absent, got %v", key, r[key])
		}
	}
}
