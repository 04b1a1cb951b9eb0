package firewall

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Fingerprint computes error_id = hex(md5(error_type + "|" +
// canonicalize(feature_map))) per §4.F.
func Fingerprint(errorType string, featureMap map[string]string) string {
	canon := canonicalize(featureMap)
	sum := md5.Sum([]byte(errorType + "|" + canon))
	return hex.EncodeToString(sum[:])
}

// canonicalize sorts keys, lowercases string values, and renders the
// pair list deterministically so identical feature sets always hash
// to the same fingerprint regardless of input ordering or casing.
func canonicalize(featureMap map[string]string) string {
	keys := make([]string, 0, len(featureMap))
	for k := range featureMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, canonicalizeValue(featureMap[k])))
	}
	return strings.Join(pairs, "&")
}

// canonicalizeValue lowercases strings and renders numeric-looking
// values in a canonical decimal form, so "3" and "3.0" fingerprint
// identically.
func canonicalizeValue(v string) string {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.ToLower(v)
}
