// Package idhash generates deterministic identifiers so that re-running
// the same backtest yields byte-identical trade records.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID derives a stable trade ID from the fields that uniquely
// identify a trade within a run.
func ComputeTradeID(runID, symbol, strategyID string, direction string, openTimeMs int64) string {
	input := fmt.Sprintf("%s|%s|%s|%s|%d", runID, symbol, strategyID, direction, openTimeMs)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:16]
}

// ComputeRunID derives a stable run ID from the configuration hash, seed
// and bar range of a backtest.
func ComputeRunID(configHash string, seed, startMs, endMs int64) string {
	input := fmt.Sprintf("%s|%d|%d|%d", configHash, seed, startMs, endMs)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:16]
}
