package miner

import "strings"

// checkpointInterval is how many nonces are tried between message-queue
// drains.
const checkpointInterval = 1000

// Target renders the textual proof-of-work target for the given
// difficulty: bits leading zeros, a '1' marker, then the remaining
// zeros. Comparison against a candidate hash is ordinary string
// comparison, matching the simulation's textual-hex target convention
// bit-exactly (including its one-character-longer-than-a-hash length,
// which only ever matters at the exact boundary case).
func Target(bits int) string {
	return strings.Repeat("0", bits) + "1" + strings.Repeat("0", 64-bits)
}

// meetsTarget reports whether hash satisfies target under the
// simulation's string-comparison convention.
func meetsTarget(hash, target string) bool {
	return hash < target
}
