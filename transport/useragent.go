package transport

import (
	"fmt"
	"runtime"
)

const clientVersion = "1.0.0"

// UserAgent builds the User-Agent header value, following the
// "[caller-name ]<client>/<ver> (<os>) <transport>/<ver>" convention so
// server-side tooling can attribute traffic by caller.
func UserAgent(callerName string) string {
	transport := fmt.Sprintf("go/%s", runtime.Version())

	if callerName == "" {
		return fmt.Sprintf("chgo/%s (%s) %s", clientVersion, runtime.GOOS, transport)
	}

	return fmt.Sprintf("%s chgo/%s (%s) %s", callerName, clientVersion, runtime.GOOS, transport)
}
