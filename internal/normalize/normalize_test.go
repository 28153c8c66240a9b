package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/flistgo/flistapi/internal/timespan"
)

var now = time.Date(2020, time.March, 31, 12, 0, 0, 0, time.UTC)

func mustDecode(t *testing.T, raw string) any {
	t.Helper()
	v, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode(%s) error = %v", raw, err)
	}
	return v
}

func TestNormalize_NestedObjectsAndArrays(t *testing.T) {
	t.Parallel()

	root := mustDecode(t, `{"a":{"datetime_x":"1h","name":"1h"},"b":[{"datetime_y":"2d"}],"c":"keep"}`)
	out := Normalize(root, now).(map[string]any)

	a := out["a"].(map[string]any)
	if got, ok := a["datetime_x"].(time.Time); !ok || !got.Equal(timespan.Parse("1h", now)) {
		t.Errorf("a.datetime_x = %v, want %s", a["datetime_x"], timespan.Parse("1h", now))
	}
	if a["name"] != "1h" {
		t.Errorf("a.name = %v, want untouched", a["name"])
	}

	b := out["b"].([]any)[0].(map[string]any)
	if got, ok := b["datetime_y"].(time.Time); !ok || !got.Equal(timespan.Parse("2d", now)) {
		t.Errorf("b[0].datetime_y = %v, want %s", b["datetime_y"], timespan.Parse("2d", now))
	}
	if out["c"] != "keep" {
		t.Errorf("c = %v, want untouched", out["c"])
	}
}

func TestNormalize_MarkerAnywhereInKey(t *testing.T) {
	t.Parallel()

	root := mustDecode(t, `{"last_datetime_online":"3m","datetime":"3m"}`)
	out := Normalize(root, now).(map[string]any)

	if _, ok := out["last_datetime_online"].(time.Time); !ok {
		t.Errorf("expected key containing marker to be converted, got %T", out["last_datetime_online"])
	}
	if out["datetime"] != "3m" {
		t.Errorf("key without trailing underscore must stay, got %v", out["datetime"])
	}
}

func TestNormalize_NonStringMarkerValues(t *testing.T) {
	t.Parallel()

	root := mustDecode(t, `{"datetime_n":5,"datetime_null":null,"datetime_obj":{"datetime_inner":"1s","x":1}}`)
	out := Normalize(root, now).(map[string]any)

	if n, ok := out["datetime_n"].(json.Number); !ok || n.String() != "5" {
		t.Errorf("datetime_n = %v, want json.Number 5", out["datetime_n"])
	}
	if out["datetime_null"] != nil {
		t.Errorf("datetime_null = %v, want nil", out["datetime_null"])
	}
	inner := out["datetime_obj"].(map[string]any)
	if _, ok := inner["datetime_inner"].(time.Time); !ok {
		t.Errorf("expected containers under marker keys to be descended into, got %T", inner["datetime_inner"])
	}
}

func TestNormalize_ArrayStringsUntouched(t *testing.T) {
	t.Parallel()

	root := mustDecode(t, `{"datetime_list":["1h","2h"],"nested":[["x",{"datetime_z":"4w"}]]}`)
	out := Normalize(root, now).(map[string]any)

	list := out["datetime_list"].([]any)
	if list[0] != "1h" || list[1] != "2h" {
		t.Errorf("array elements must not be converted, got %v", list)
	}
	deep := out["nested"].([]any)[0].([]any)[1].(map[string]any)
	if _, ok := deep["datetime_z"].(time.Time); !ok {
		t.Errorf("expected object nested in arrays to be converted, got %T", deep["datetime_z"])
	}
}

func TestNormalize_ScalarsAndTopLevelArrays(t *testing.T) {
	t.Parallel()

	for _, v := range []any{nil, "1h", json.Number("3"), true} {
		if got := Normalize(v, now); got != v {
			t.Errorf("Normalize(%v) = %v, want unchanged", v, got)
		}
	}

	arr := mustDecode(t, `[{"datetime_a":"1y"}]`)
	first := Normalize(arr, now).([]any)[0].(map[string]any)
	if _, ok := first["datetime_a"].(time.Time); !ok {
		t.Errorf("expected top-level array elements to be converted, got %T", first["datetime_a"])
	}
}

func TestNormalize_DeepNesting(t *testing.T) {
	t.Parallel()

	const depth = 10000
	leaf := map[string]any{"datetime_leaf": "1d"}
	var node any = leaf
	for i := 0; i < depth; i++ {
		if i%2 == 0 {
			node = map[string]any{"child": node}
		} else {
			node = []any{node}
		}
	}
	Normalize(node, now)
	if _, ok := leaf["datetime_leaf"].(time.Time); !ok {
		t.Fatalf("expected deeply nested leaf to be converted, got %T", leaf["datetime_leaf"])
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	v := mustDecode(t, `{"id":12345678901234567890}`)
	if got := v.(map[string]any)["id"].(json.Number).String(); got != "12345678901234567890" {
		t.Errorf("id = %s, want exact digits", got)
	}
	if _, err := Decode([]byte(`{"a":`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
	if _, err := Decode([]byte(`{} {}`)); err == nil {
		t.Error("expected error for trailing data")
	}
}
