// Package debtrange holds the debt-amount bucket vocabulary and maps raw
// amounts, bucket keys and labels onto human-readable range labels.
package debtrange

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PreferNotToSay is the label for amounts that cannot be resolved.
const PreferNotToSay = "Prefer not to say"

// Bucket is a predefined debt range identified by Key. Max is -1 for the
// open-ended top bucket.
type Bucket struct {
	Key string
	Min int
	Max int
}

// Buckets is the authoritative bucket list, in ascending order.
var Buckets = []Bucket{
	{Key: "0-4999", Min: 0, Max: 4999},
	{Key: "5000-7499", Min: 5000, Max: 7499},
	{Key: "7500-9999", Min: 7500, Max: 9999},
	{Key: "10000-14999", Min: 10000, Max: 14999},
	{Key: "15000-19999", Min: 15000, Max: 19999},
	{Key: "20000-29999", Min: 20000, Max: 29999},
	{Key: "30000-39999", Min: 30000, Max: 39999},
	{Key: "40000-49999", Min: 40000, Max: 49999},
	{Key: "50000-59999", Min: 50000, Max: 59999},
	{Key: "60000-69999", Min: 60000, Max: 69999},
	{Key: "70000-79999", Min: 70000, Max: 79999},
	{Key: "80000-89999", Min: 80000, Max: 89999},
	{Key: "90000-99999", Min: 90000, Max: 99999},
	{Key: "100000+", Min: 100000, Max: -1},
}

var printer = message.NewPrinter(language.English)

// Label renders the bucket the way it is shown to visitors and partners,
// e.g. "$10,000 - $14,999" or "$100,000+".
func (b Bucket) Label() string {
	if b.Max < 0 {
		return printer.Sprintf("$%d+", b.Min)
	}
	return printer.Sprintf("$%d - $%d", b.Min, b.Max)
}

// Keys returns the bucket keys in order.
func Keys() []string {
	keys := make([]string, len(Buckets))
	for i, b := range Buckets {
		keys[i] = b.Key
	}
	return keys
}

// ByKey returns the bucket with the given key.
func ByKey(key string) (Bucket, bool) {
	for _, b := range Buckets {
		if b.Key == key {
			return b, true
		}
	}
	return Bucket{}, false
}

// ForAmount returns the bucket containing amount. Negative, NaN and infinite
// amounts have no bucket.
func ForAmount(amount float64) (Bucket, bool) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return Bucket{}, false
	}
	for i, b := range Buckets {
		last := i == len(Buckets)-1
		if amount >= float64(b.Min) && (last || amount < float64(Buckets[i+1].Min)) {
			return b, true
		}
	}
	return Bucket{}, false
}

// Resolve maps a raw debt amount onto its bucket. It accepts bucket keys,
// bucket labels, numeric strings and JSON numbers.
func Resolve(v any) (Bucket, bool) {
	switch x := v.(type) {
	case nil:
		return Bucket{}, false
	case Bucket:
		return ByKey(x.Key)
	case string:
		return resolveString(x)
	case json.Number:
		return resolveString(x.String())
	case float64:
		return ForAmount(x)
	case float32:
		return ForAmount(float64(x))
	case int:
		return ForAmount(float64(x))
	case int64:
		return ForAmount(float64(x))
	default:
		return Bucket{}, false
	}
}

func resolveString(s string) (Bucket, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Bucket{}, false
	}
	if b, ok := ByKey(s); ok {
		return b, true
	}
	for _, b := range Buckets {
		if b.Label() == s {
			return b, true
		}
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", ""), 64)
	if err != nil {
		return Bucket{}, false
	}
	return ForAmount(n)
}

// Label maps v onto a range label, falling back to PreferNotToSay. Mapping
// a label through Label again yields the same label.
func Label(v any) string {
	b, ok := Resolve(v)
	if !ok {
		return PreferNotToSay
	}
	return b.Label()
}

// Key maps v onto a bucket key, reporting whether it resolved.
func Key(v any) (string, bool) {
	b, ok := Resolve(v)
	if !ok {
		return "", false
	}
	return b.Key, true
}
