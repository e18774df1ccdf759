package server

import (
	"fmt"
	"net"

	"fcc-bootstrap/internal/logger"
)

type ListenAddr struct {
	Network string
	Address string
}

/**
 * Create listeners for the control API
 * @param {[]ListenAddr} addrs - Listener addresses
 * @returns {[]net.Listener} Listeners that could be created
 * @returns {error} Last creation failure, or an error when an address is not loopback
 * @description
 * - Only loopback TCP addresses are accepted; the control API is never exposed
 * - Continues with the remaining addresses when one fails
 */
func CreateListeners(addrs []ListenAddr) ([]net.Listener, error) {
	var listeners []net.Listener

	var lastErr error
	for _, addr := range addrs {
		if err := checkLoopback(addr); err != nil {
			logger.Errorf("Refusing listener %s://%s: %v", addr.Network, addr.Address, err)
			lastErr = err
			continue
		}
		l, err := net.Listen(addr.Network, addr.Address)
		if err != nil {
			logger.Errorf("Failed to create listener on %s://%s: %v", addr.Network, addr.Address, err)
			lastErr = err
			continue
		}
		listeners = append(listeners, l)
	}
	return listeners, lastErr
}

func checkLoopback(addr ListenAddr) error {
	if addr.Network != "tcp" && addr.Network != "tcp4" && addr.Network != "tcp6" {
		return fmt.Errorf("unsupported network '%s'", addr.Network)
	}
	host, _, err := net.SplitHostPort(addr.Address)
	if err != nil {
		return err
	}
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("'%s' is not a loopback address", host)
	}
	return nil
}
