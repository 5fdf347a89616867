package normalization

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Field access never fails. Absent keys yield the caller's default,
// present values that are null or not numeric yield NaN.

// num reads obj[key] as a number, returning def when the key is absent.
func num(obj gjson.Result, key string, def float64) float64 {
	return toNum(obj.Get(gjson.Escape(key)), def)
}

// toNum coerces a JSON value to float64.
func toNum(r gjson.Result, def float64) float64 {
	if !r.Exists() {
		return def
	}
	switch r.Type {
	case gjson.Number:
		return r.Num
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return math.NaN()
		}
		return v
	case gjson.True:
		return 1
	case gjson.False:
		return 0
	default:
		return math.NaN()
	}
}

// pegged reads obj[key] as a number, unwrapping {"peggedUSD": n} objects.
func pegged(obj gjson.Result, key string, def float64) float64 {
	r := obj.Get(gjson.Escape(key))
	if r.IsObject() {
		if usd := r.Get("peggedUSD"); usd.Exists() {
			return toNum(usd, def)
		}
	}
	return toNum(r, def)
}

// str reads obj[key] as text. Absent and null yield "".
func str(obj gjson.Result, key string) string {
	return toStr(obj.Get(gjson.Escape(key)))
}

func toStr(r gjson.Result) string {
	if !r.Exists() || r.Type == gjson.Null {
		return ""
	}
	if r.Type == gjson.String {
		return r.Str
	}
	return r.Raw
}

// list reads obj[key] as a ", " joined string.
// A scalar is rendered as its text; absent and null yield "".
func list(obj gjson.Result, key string) string {
	r := obj.Get(gjson.Escape(key))
	if !r.IsArray() {
		return toStr(r)
	}
	items := r.Array()
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, toStr(it))
	}
	return strings.Join(parts, ", ")
}

// items returns the elements of an array document, or the document itself
// when it is a single object.
func items(doc gjson.Result) ([]gjson.Result, bool) {
	switch {
	case doc.IsArray():
		return doc.Array(), true
	case doc.IsObject():
		return []gjson.Result{doc}, true
	}
	return nil, false
}
