package cmd

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// parseServeFlags parses the serve command arguments, supporting:
//   - lectern serve :8080                 (positional address)
//   - lectern serve --addr :8080          (flag)
//   - lectern serve --docs ./materials    (startup ingest folder)
func parseServeFlags(args []string, defaultAddr, defaultDocs string) (addr, docs string, err error) {
	serveFlags := flag.NewFlagSet("serve", flag.ContinueOnError)
	serveFlags.SetOutput(os.Stderr)

	addrFlag := serveFlags.String("addr", defaultAddr, "Server address (host:port)")
	docsFlag := serveFlags.String("docs", defaultDocs, "Course folder ingested at startup (empty to skip)")

	// Positional address comes first (lectern serve :8080)
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		*addrFlag = args[0]
		args = args[1:]
	}

	if err := serveFlags.Parse(args); err != nil {
		return "", "", err
	}

	if err := validateAddr(*addrFlag); err != nil {
		return "", "", fmt.Errorf("invalid address %q: %w", *addrFlag, err)
	}

	return *addrFlag, *docsFlag, nil
}

// validateAddr validates the server address format.
func validateAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("must be in host:port format: %w", err)
	}

	if host != "" && host != "localhost" {
		if ip := net.ParseIP(host); ip == nil {
			if strings.ContainsAny(host, " \t\n") {
				return fmt.Errorf("invalid host: %s", host)
			}
		}
	}

	if port == "" {
		return fmt.Errorf("port is required")
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("port must be numeric: %w", err)
	}
	if portNum < 0 || portNum > 65535 {
		return fmt.Errorf("port must be 0-65535 (0 = auto-assign), got %d", portNum)
	}

	return nil
}
