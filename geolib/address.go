package geolib

import (
	"fmt"
	"net"
	"strings"

	"github.com/EvilSuperstars/go-cidrman"
	"github.com/asergeyev/nradix"
)

// MaxAddressLength is a maximal length of the textual IP address.
// This is a length of the longest IPv6 form with embedded IPv4.
const MaxAddressLength = 45

type reservedRange struct {
	first string
	last  string
}

var (
	reservedNetworks = map[string]string{
		"0.0.0.0/8":       "unspecified",
		"10.0.0.0/8":      "private",
		"100.64.0.0/10":   "shared address space",
		"127.0.0.0/8":     "loopback",
		"169.254.0.0/16":  "link-local",
		"172.16.0.0/12":   "private",
		"192.0.2.0/24":    "documentation",
		"192.168.0.0/16":  "private",
		"198.18.0.0/15":   "benchmarking",
		"198.51.100.0/24": "documentation",
		"203.0.113.0/24":  "documentation",
		"::/128":          "unspecified",
		"::1/128":         "loopback",
		"fc00::/7":        "unique local",
		"fe80::/10":       "link-local",
		"ff00::/8":        "multicast",
		"2001:db8::/32":   "documentation",
	}

	// multicast and everything above it
	reservedRanges = map[reservedRange]string{
		{first: "224.0.0.0", last: "255.255.255.255"}: "multicast or reserved",
	}

	reservedDB = newReservedTrees()
)

type reservedTrees struct {
	v4Tree *nradix.Tree
	v6Tree *nradix.Tree
}

func (r *reservedTrees) add(cidr, reason string) error {
	tree := r.v6Tree
	if strings.Contains(cidr, ".") {
		tree = r.v4Tree
	}

	err := tree.AddCIDR(cidr, reason)

	switch {
	case err == nradix.ErrNodeBusy:
		if err := tree.SetCIDR(cidr, reason); err != nil {
			return fmt.Errorf("cannot set cidr %s: %w", cidr, err)
		}
	case err != nil:
		return fmt.Errorf("cannot add cidr %s: %w", cidr, err)
	}

	return nil
}

func (r *reservedTrees) lookup(ip net.IP) (string, error) {
	var (
		value interface{}
		err   error
	)

	if v4 := ip.To4(); v4 != nil {
		value, err = r.v4Tree.FindCIDR(v4.String() + "/32")
	} else {
		value, err = r.v6Tree.FindCIDR(ip.To16().String() + "/128")
	}

	if err != nil {
		return "", fmt.Errorf("cannot lookup %s: %w", ip, err)
	}

	reason, _ := value.(string)

	return reason, nil
}

func newReservedTrees() *reservedTrees {
	trees := &reservedTrees{
		v4Tree: nradix.NewTree(0),
		v6Tree: nradix.NewTree(0),
	}

	for cidr, reason := range reservedNetworks {
		if err := trees.add(cidr, reason); err != nil {
			panic(err)
		}
	}

	for rng, reason := range reservedRanges {
		cidrs, err := cidrman.IPRangeToCIDRs(rng.first, rng.last)
		if err != nil {
			panic(err)
		}

		for _, cidr := range cidrs {
			if err := trees.add(cidr, reason); err != nil {
				panic(err)
			}
		}
	}

	return trees
}

// normalizeAddress returns a cache key for the given raw address and its
// parsed form. If address cannot be parsed, returned IP is nil but key
// is still usable: such addresses are classified as private.
func normalizeAddress(raw string) (string, net.IP, error) {
	if raw == "" || len(raw) > MaxAddressLength {
		return "", nil, ErrInvalidInput
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil, ErrInvalidInput
	}

	ip := net.ParseIP(raw)
	if ip == nil {
		return strings.ToLower(raw), nil, nil
	}

	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}

	return ip.String(), ip, nil
}

// reservedReason returns a name of reserved range which contains a given
// ip. Unparsed (nil) addresses are always reserved.
func reservedReason(ip net.IP) (string, bool) {
	if ip == nil || (ip.To4() == nil && len(ip) != net.IPv6len) {
		return "unparseable", true
	}

	reason, err := reservedDB.lookup(ip)

	switch {
	case err != nil:
		return "unparseable", true
	case reason != "":
		return reason, true
	}

	return "", false
}

// checkRoutable returns an error wrapping ErrPrivateAddress if a given
// address should never be sent upstream.
func checkRoutable(ip net.IP) error {
	if reason, ok := reservedReason(ip); ok {
		return fmt.Errorf("%s address: %w", reason, ErrPrivateAddress)
	}

	return nil
}
