// Package cachekey derives deterministic cache keys and filesystem paths from
// a (template, filename, parameters) triple. Parameters are canonicalized by
// key order before hashing, so logically identical requests always address
// the same artifact regardless of how the parameter map was built.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"sort"
	"strings"
)

// paramsHashLen is the length of the short parameter hash embedded in cache
// paths: 2 characters for the fan-out directory, the rest as the second level.
const paramsHashLen = 16

// fanOutLen is the number of leading hash characters used as the first
// fan-out directory level.
const fanOutLen = 2

// ComputeKey returns the deterministic cache key for a request. Equal inputs
// always produce equal keys; params insertion order does not matter.
func ComputeKey(template, filename string, params map[string]string) string {
	h := sha256.New()
	h.Write([]byte(template))
	h.Write([]byte{0})
	h.Write([]byte(filename))
	h.Write([]byte{0})
	h.Write([]byte(canonicalParams(params)))
	return hex.EncodeToString(h.Sum(nil))
}

// ParamsHash returns the short hash of the canonicalized parameter set used
// as the path fan-out prefix. Empty params hash to the empty string.
func ParamsHash(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	sum := sha256.Sum256([]byte(canonicalParams(params)))
	return hex.EncodeToString(sum[:])[:paramsHashLen]
}

// ComputePath maps a request onto the cache tree. Parameterless requests live
// directly under the template directory; parameterized requests get a
// two-level hash fan-out between the template directory and the filename to
// bound directory entry counts:
//
//	cacheRoot/<template>/<filename>
//	cacheRoot/<template>/<hash[:2]>/<hash[2:]>/<filename>
func ComputePath(cacheRoot, template, filename string, params map[string]string) string {
	ph := ParamsHash(params)
	if ph == "" {
		return filepath.Join(cacheRoot, template, filename)
	}
	return filepath.Join(cacheRoot, template, ph[:fanOutLen], ph[fanOutLen:], filename)
}

func canonicalParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}
