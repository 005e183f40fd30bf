package harness

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Variant is one (harness, model) execution target. Model is "" for
// harnesses run with their default model.
type Variant struct {
	Harness string `json:"harness"`
	Model   string `json:"model"`
}

// Key returns the stable identity used by the fail-fast registry and
// summary buckets. The empty model reads as "default".
func (v Variant) Key() string {
	model := v.Model
	if model == "" {
		model = "default"
	}
	return v.Harness + "::" + model
}

// ExpandVariants enumerates execution targets in input order. A harness
// with configured models fans out to one variant per model; otherwise
// it runs once with its default model.
func ExpandVariants(harnesses []string, models map[string][]string) []Variant {
	var variants []Variant
	for _, h := range harnesses {
		if list := models[h]; len(list) > 0 {
			for _, m := range list {
				variants = append(variants, Variant{Harness: h, Model: m})
			}
			continue
		}
		variants = append(variants, Variant{Harness: h})
	}
	return variants
}

// MakeTraceparent builds a W3C traceparent header plus its bare trace
// id for correlation export.
func MakeTraceparent() (traceparent, traceID string) {
	traceID = strings.ReplaceAll(uuid.NewString(), "-", "")

	span := make([]byte, 8)
	if _, err := rand.Read(span); err != nil {
		copy(span, traceID[:8])
	}
	return fmt.Sprintf("00-%s-%s-01", traceID, hex.EncodeToString(span)), traceID
}
