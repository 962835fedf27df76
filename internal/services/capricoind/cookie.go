package capricoind

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

func readCookieFile(path string) (username, password string, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	s := strings.TrimSpace(string(b))
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("malformed cookie file %s", path)
	}
	return parts[0], parts[1], nil
}

// cookieRetriever caches cookie credentials and re-reads the file when its
// modification time changes. The node rewrites .cookie on every start, so a
// restart invalidates cached credentials.
func cookieRetriever(path string) func() (username, password string, err error) {
	var (
		mu            sync.Mutex
		lastCheckTime time.Time
		lastModTime   time.Time
		curUsername   string
		curPassword   string
		curError      error
	)

	doUpdate := func() {
		if !lastCheckTime.IsZero() && time.Now().Before(lastCheckTime.Add(30*time.Second)) {
			return
		}
		lastCheckTime = time.Now()

		st, err := os.Stat(path)
		if err != nil {
			curError = err
			return
		}
		modTime := st.ModTime()
		if !modTime.Equal(lastModTime) {
			lastModTime = modTime
			curUsername, curPassword, curError = readCookieFile(path)
		}
	}

	return func() (string, string, error) {
		mu.Lock()
		defer mu.Unlock()
		doUpdate()
		return curUsername, curPassword, curError
	}
}
