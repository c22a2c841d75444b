package core

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/miklabel/core/dataset"
	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/schema"
	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"
)

// currentCacheVersion defines the version of the cache schema
const currentCacheVersion = 2

// cacheTTL is how long a reshaped dataset stays valid.
const cacheTTL = 7 * 24 * time.Hour

// cachedReshape is the payload stored for one reshape.
type cachedReshape struct {
	Table *dataset.Table
	Stats schema.ReshapeStats
}

// reshapeWithCache returns the reshaped input, from the cache when possible.
func reshapeWithCache(ctx context.Context, store contract.CacheStore, r *dataset.Reshaper, inputPath, key string) (*dataset.Table, schema.ReshapeStats, bool, error) {
	if store == nil {
		// Fallback to direct computation
		t, stats, err := r.ReshapeFile(ctx, inputPath)
		return t, stats, false, err
	}

	// Check for cache hit
	if result := checkCacheHit(store, key); result != nil {
		return result.Table, result.Stats, true, nil
	}

	// Cache miss: compute and store
	t, stats, err := computeAndStore(ctx, store, r, inputPath, key)
	return t, stats, false, err
}

// checkCacheHit attempts to retrieve and validate a cached result
func checkCacheHit(store contract.CacheStore, key string) *cachedReshape {
	data, version, ts, err := store.Get(key)
	if err != nil {
		return nil // Cache miss
	}

	// Validate version and staleness
	if version != currentCacheVersion || time.Since(time.Unix(ts, 0)) > cacheTTL {
		return nil
	}
	result, err := decodePayload(data)
	if err != nil {
		return nil
	}
	return result
}

// computeAndStore computes the result and stores it in cache
func computeAndStore(ctx context.Context, store contract.CacheStore, r *dataset.Reshaper, inputPath, key string) (*dataset.Table, schema.ReshapeStats, error) {
	t, stats, err := r.ReshapeFile(ctx, inputPath)
	if err != nil {
		return nil, stats, err
	}

	if data, err := encodePayload(cachedReshape{Table: t, Stats: stats}); err == nil {
		if err := store.Set(key, data, currentCacheVersion, time.Now().Unix()); err != nil {
			contract.LogWarn("Failed to cache reshaped dataset", err)
		}
	}
	return t, stats, nil
}

// generateCacheKey creates a unique key based on everything that shapes the output
func generateCacheKey(cfg *contract.Config, inputDigest, remapFingerprint string) string {
	key := fmt.Sprintf("%s:%s:%s:%s:%s:%s:%s",
		inputDigest,
		cfg.Kind,
		cfg.Policies.UnmappedLabel,
		cfg.Policies.Malformed,
		cfg.Policies.EmptyFiles,
		cfg.DefaultLabel,
		remapFingerprint,
	)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))
}

// digestFile returns the hex blake3 digest of a file's content.
func digestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// encodePayload compresses the stats as one JSON line followed by the table
// as raw TSV. Cells are kept byte for byte, including invalid UTF-8.
func encodePayload(p cachedReshape) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if err := json.NewEncoder(enc).Encode(p.Stats); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if _, err := p.Table.WriteTo(enc); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodePayload reverses encodePayload.
func decodePayload(data []byte) (*cachedReshape, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	br := bufio.NewReader(dec)
	statsLine, err := br.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("cached reshape has no stats line: %w", err)
	}
	var result cachedReshape
	if err := json.Unmarshal(statsLine, &result.Stats); err != nil {
		return nil, err
	}
	if result.Table, err = dataset.ParseTable(br); err != nil {
		return nil, err
	}
	return &result, nil
}
