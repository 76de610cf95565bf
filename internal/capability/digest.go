package capability

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/dossiersim/internal/model"
)

// digest is the seed of a canned result. It is derived from the capability
// id and the canonical JSON encoding of the input, so equal inputs always
// produce equal outputs.
type digest [32]byte

func digestOf(capabilityID string, input any) digest {
	data, err := json.Marshal(input)
	if err != nil {
		data = fmt.Appendf(nil, "%v", input)
	}
	buf := make([]byte, 0, len(capabilityID)+1+len(data))
	buf = append(buf, capabilityID...)
	buf = append(buf, ':')
	buf = append(buf, data...)
	return sha3.Sum256(buf)
}

// unit returns a value in [0, 1) taken from the i-th 8-byte lane.
func (d digest) unit(i int) float64 {
	lane := (i % 4) * 8
	v := binary.BigEndian.Uint64(d[lane : lane+8])
	return float64(v>>11) / (1 << 53)
}

// pick returns an index in [0, n) from the i-th lane.
func (d digest) pick(i, n int) int {
	if n <= 0 {
		return 0
	}
	return int(d.unit(i) * float64(n))
}

// millis returns a cosmetic duration between base and base+spread.
func (d digest) millis(i, base, spread int) int {
	return base + d.pick(i, spread+1)
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// inputMap views an adapter input as a record. Non-record inputs are
// exposed under "value".
func inputMap(input any) map[string]any {
	if m, ok := input.(map[string]any); ok {
		return m
	}
	if input == nil {
		return map[string]any{}
	}
	return map[string]any{"value": input}
}

func stringField(m map[string]any, key, fallback string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func numberField(m map[string]any, key string) (float64, bool) {
	return model.Number(m[key])
}

func boolField(m map[string]any, key string) (bool, bool) {
	b, ok := m[key].(bool)
	return b, ok
}
