package ai

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
)

// Fingerprint hashes a canonical JSON serialization of v with FNV-1a 32.
// Callers strip volatile fields before hashing.
func Fingerprint(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "fp_invalid"
	}
	h := fnv.New32a()
	_, _ = h.Write(raw)
	return fmt.Sprintf("%08x", h.Sum32())
}

// FingerprintInput hashes an AIInput with NowIso stripped so two snapshots
// taken at different times over identical content collide.
func FingerprintInput(in AIInput) string {
	in.NowIso = ""
	return Fingerprint(in)
}
