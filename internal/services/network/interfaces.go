// Package network finds IPv4 broadcast addresses for Art-Net output.
package network

import (
	"fmt"
	"net"
	"strings"
)

// GlobalBroadcast is the limited broadcast address.
const GlobalBroadcast = "255.255.255.255"

// InterfaceOption is an up, non-loopback IPv4 interface that can carry
// Art-Net broadcasts.
type InterfaceOption struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	Broadcast     string `json:"broadcast"`
	InterfaceType string `json:"interfaceType"` // "ethernet", "wifi" or "other"
}

// GetInterfaceType guesses the interface type from its name.
func GetInterfaceType(ifaceName string) string {
	name := strings.ToLower(ifaceName)

	if strings.HasPrefix(name, "wlan") ||
		strings.HasPrefix(name, "wl") ||
		strings.Contains(name, "wifi") {
		return "wifi"
	}
	if strings.HasPrefix(name, "eth") ||
		strings.HasPrefix(name, "en") {
		return "ethernet"
	}
	return "other"
}

// calculateBroadcast computes the broadcast address from IP and netmask
func calculateBroadcast(ip net.IP, mask net.IPMask) net.IP {
	if ip == nil || mask == nil {
		return nil
	}

	ip4 := ip.To4()
	if ip4 == nil {
		return nil
	}

	if len(mask) == 16 {
		mask = mask[12:16]
	}
	if len(mask) != 4 {
		return nil
	}

	broadcast := make(net.IP, 4)
	for i := 0; i < 4; i++ {
		broadcast[i] = ip4[i] | ^mask[i]
	}
	return broadcast
}

// optionsFor builds the broadcast options for one interface's addresses.
func optionsFor(name string, addrs []net.Addr) []InterfaceOption {
	var options []InterfaceOption
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipNet.IP.To4()
		if ip4 == nil {
			continue
		}
		broadcast := calculateBroadcast(ip4, ipNet.Mask)
		if broadcast == nil || broadcast.Equal(ip4) {
			// Point-to-point links have no broadcast.
			continue
		}
		options = append(options, InterfaceOption{
			Name:          name,
			Address:       ip4.String(),
			Broadcast:     broadcast.String(),
			InterfaceType: GetInterfaceType(name),
		})
	}
	return options
}

// GetNetworkInterfaces lists broadcast-capable interfaces, ethernet first,
// then wifi, then everything else.
func GetNetworkInterfaces() ([]InterfaceOption, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to get network interfaces: %w", err)
	}

	var ethernet, wifi, other []InterfaceOption
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, option := range optionsFor(iface.Name, addrs) {
			switch option.InterfaceType {
			case "ethernet":
				ethernet = append(ethernet, option)
			case "wifi":
				wifi = append(wifi, option)
			default:
				other = append(other, option)
			}
		}
	}

	options := make([]InterfaceOption, 0, len(ethernet)+len(wifi)+len(other))
	options = append(options, ethernet...)
	options = append(options, wifi...)
	options = append(options, other...)
	return options, nil
}

// ResolveBroadcast turns an Art-Net target into an IPv4 address. An IP is
// returned as is; an interface name resolves to that interface's subnet
// broadcast; an empty value or an unknown name falls back to the global
// broadcast.
func ResolveBroadcast(target string, options []InterfaceOption) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return GlobalBroadcast, nil
	}
	if ip := net.ParseIP(target); ip != nil {
		if ip.To4() == nil {
			return "", fmt.Errorf("art-net needs an IPv4 address, got %s", target)
		}
		return ip.To4().String(), nil
	}
	for _, option := range options {
		if option.Name == target {
			return option.Broadcast, nil
		}
	}
	return GlobalBroadcast, fmt.Errorf("no broadcast address found for interface %q", target)
}
