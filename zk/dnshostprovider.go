package zk

import (
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// serverList parses a ZooKeeper connect string —
// grammar `endpoint (, endpoint)* (/chroot)?` — and round-robins through
// the endpoints on (re)connect.
type serverList struct {
	mu      sync.Mutex
	addrs   []string
	nextIdx int
	chroot  string
}

// parseConnectString validates and splits a connect string into endpoints
// and an optional chroot prefix.
func parseConnectString(connectString string) (*serverList, error) {
	if connectString == "" {
		return nil, errors.Wrap(ErrInvalidConnect, "empty connect string")
	}

	hostsPart := connectString
	chroot := "/"
	if idx := strings.Index(connectString, "/"); idx >= 0 {
		hostsPart = connectString[:idx]
		chrootPart := connectString[idx:]
		if chrootPart != "/" {
			chroot = chrootPart
		}
	}

	rawEndpoints := strings.Split(hostsPart, ",")
	addrs := make([]string, 0, len(rawEndpoints))
	for _, raw := range rawEndpoints {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, errors.Wrap(ErrInvalidConnect, "empty endpoint")
		}
		addr, err := validateEndpoint(raw)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	if len(addrs) == 0 {
		return nil, errors.Wrap(ErrInvalidConnect, "no endpoints")
	}

	return &serverList{addrs: addrs, chroot: chroot}, nil
}

// validateEndpoint enforces a decimal port in [1,65535], and
// if the host looks like dotted-quad IPv4, each octet in [0,255].
// Hostnames are accepted as opaque strings.
func validateEndpoint(endpoint string) (string, error) {
	host := endpoint
	port := strconv.Itoa(defaultPort)
	if idx := strings.LastIndex(endpoint, ":"); idx >= 0 {
		host = endpoint[:idx]
		port = endpoint[idx+1:]
	}
	if host == "" {
		return "", errors.Wrapf(ErrInvalidConnect, "missing host in %q", endpoint)
	}

	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 1 || portNum > 65535 {
		return "", errors.Wrapf(ErrInvalidConnect, "invalid port in %q", endpoint)
	}

	if looksLikeIPv4(host) {
		if err := validateIPv4Octets(host); err != nil {
			return "", errors.Wrapf(ErrInvalidConnect, "invalid IPv4 host in %q: %v", endpoint, err)
		}
	}

	return host + ":" + strconv.Itoa(portNum), nil
}

func looksLikeIPv4(host string) bool {
	parts := strings.Split(host, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		for _, c := range p {
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}

func validateIPv4Octets(host string) error {
	for _, p := range strings.Split(host, ".") {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return errors.Errorf("octet %q out of range", p)
		}
	}
	return nil
}

// next returns the next endpoint to dial, round-robin.
func (s *serverList) next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	addr := s.addrs[s.nextIdx]
	s.nextIdx = (s.nextIdx + 1) % len(s.addrs)
	return addr
}

// withChroot prepends the chroot prefix to a normalized user path
// concat(chroot, normalize(p)), and is a no-op
// when chroot == "/".
func (s *serverList) withChroot(p string) string {
	if s.chroot == "/" {
		return p
	}
	if p == "/" {
		return s.chroot
	}
	return s.chroot + p
}

// stripChroot is the inverse of withChroot, used to translate a server
// path (e.g. one returned from a sequential create) back to the client's
// view.
func (s *serverList) stripChroot(p string) string {
	if s.chroot == "/" {
		return p
	}
	if strings.HasPrefix(p, s.chroot) {
		rest := p[len(s.chroot):]
		if rest == "" {
			return "/"
		}
		return rest
	}
	return p
}
