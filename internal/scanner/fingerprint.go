package scanner

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint identifies the options that affect scan output. Two scans with
// equal fingerprints over identical sources produce identical manifests.
func (o ScanOptions) Fingerprint() string {
	n := o.normalized()

	h := xxhash.New()
	fmt.Fprintf(h, "private=%t\x00static=%t\x00follow=%t\x00", n.IncludePrivateMethods, n.IncludeStaticMethods, n.FollowImports)

	bases := n.baseClasses()
	sort.Strings(bases)
	h.WriteString("bases=" + strings.Join(bases, ",") + "\x00")

	decorators := append([]string(nil), n.DecoratorNames...)
	sort.Strings(decorators)
	h.WriteString("decorators=" + strings.Join(decorators, ",") + "\x00")

	return strconv.FormatUint(h.Sum64(), 16)
}

// contentHash hashes one file's bytes.
func contentHash(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

// SourceFingerprint hashes the scan inputs: every path with its content plus
// the options fingerprint. Paths are sorted first so argument order does not
// matter. A cached manifest stored under this key is valid for these sources.
func SourceFingerprint(paths []string, opts ScanOptions) (string, error) {
	sorted := cleanPaths(paths)

	h := xxhash.New()
	h.WriteString(opts.Fingerprint())
	for _, p := range sorted {
		data, err := os.ReadFile(p)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", p, err)
		}
		h.WriteString("\x00" + p + "\x00")
		h.WriteString(contentHash(data))
	}
	return strconv.FormatUint(h.Sum64(), 16), nil
}
