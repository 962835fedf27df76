// Package version records the pool software version.
package version

import "strconv"

// Version is the pool release reported by the CLI and the /json/version
// endpoint.
const Version = "0.0.10"

// FormatCoreVersion renders capricoinplusd's numeric version (as returned by
// getnetworkinfo) the way the status endpoint reports it, e.g. 18001000 ->
// "18001000".
func FormatCoreVersion(v int64) string {
	if v <= 0 {
		return "unknown"
	}
	return strconv.FormatInt(v, 10)
}
