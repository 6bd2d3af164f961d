package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"oap/internal/store"
)

// probeTimeout bounds each network or store probe.
const probeTimeout = 5 * time.Second

func fail(name, format string, args ...any) Result {
	return Result{Name: name, Detail: fmt.Sprintf(format, args...)}
}

func pass(name, detail string) Result {
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckDirectoryAccess passes when path is a directory the current user can
// list, read and write.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fail(name, "%s is missing", path)
	case err != nil:
		return fail(name, "%s: %v", path, err)
	case !info.IsDir():
		return fail(name, "%s is a file, expected a directory", path)
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fail(name, "%s not writable by uid %d: %v", path, os.Getuid(), err)
	}
	return pass(name, path+" (writable)")
}

// CheckStore pings the record store.
func CheckStore(ctx context.Context, driver string, st store.Store) Result {
	name := "Store (" + driver + ")"
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := st.Ping(ctx); err != nil {
		return fail(name, "ping failed: %v", err)
	}
	return pass(name, "ping ok")
}

// CheckNtfy verifies the ntfy server behind topic answers HTTP.
func CheckNtfy(ctx context.Context, topic string) Result {
	const name = "ntfy"
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return fail(name, "no topic configured")
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, topic, nil)
	if err != nil {
		return fail(name, "bad topic url: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fail(name, "HEAD %s: %v", topic, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fail(name, "HEAD %s returned %d", topic, resp.StatusCode)
	}
	return pass(name, "HEAD "+resp.Status)
}

// CheckSMTP verifies a TCP connection to the SMTP relay can be opened.
func CheckSMTP(ctx context.Context, host string, port int) Result {
	const name = "SMTP relay"
	host = strings.TrimSpace(host)
	if host == "" {
		return fail(name, "no host configured")
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	dialer := net.Dialer{Timeout: probeTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fail(name, "dial %s: %v", addr, err)
	}
	_ = conn.Close()
	return pass(name, "dial "+addr+" ok")
}
