package wire

import (
	"net"
	"strconv"
)

const (
	// MaxAddrPerMsg is the maximum number of addresses in one addr message.
	MaxAddrPerMsg = 1000

	// netAddressSize is services 8 + ip 16 + port 2, without the timestamp.
	netAddressSize = 26
)

// NetAddress is a peer address as carried in version and addr messages.
// Timestamp is only present on the wire inside addr.
type NetAddress struct {
	Timestamp uint32
	Services  ServiceFlag
	IP        net.IP
	Port      uint16
}

// NewNetAddress normalises ip to its 16 byte form.
func NewNetAddress(ip net.IP, port uint16, services ServiceFlag) NetAddress {
	return NetAddress{Services: services, IP: ip.To16(), Port: port}
}

// NewNetAddressFromString parses "host:port" where host is a literal IP.
func NewNetAddressFromString(hostport string, services ServiceFlag) (NetAddress, bool) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return NetAddress{}, false
	}

	ip := net.ParseIP(host)

	port, err := strconv.ParseUint(portStr, 10, 16)
	if ip == nil || err != nil {
		return NetAddress{}, false
	}

	return NewNetAddress(ip, uint16(port), services), true
}

// Addr returns "ip:port".
func (na NetAddress) Addr() string {
	return net.JoinHostPort(na.IP.String(), strconv.Itoa(int(na.Port)))
}

func (na NetAddress) appendTo(b []byte, withTimestamp bool) []byte {
	if withTimestamp {
		b = appendUint32(b, na.Timestamp)
	}

	b = appendUint64(b, uint64(na.Services))

	ip := na.IP.To16()
	if ip == nil {
		ip = make(net.IP, net.IPv6len)
	}

	b = append(b, ip...)

	return appendUint16BE(b, na.Port)
}

func (r *payloadReader) readNetAddress(field string, withTimestamp bool) (NetAddress, error) {
	var (
		na  NetAddress
		err error
	)

	size := netAddressSize
	if withTimestamp {
		size += 4
	}

	if err = r.need(size, field); err != nil {
		return na, err
	}

	if withTimestamp {
		na.Timestamp, _ = r.readUint32(field)
	}

	services, _ := r.readUint64(field)
	na.Services = ServiceFlag(services)
	na.IP, _ = r.readBytes(net.IPv6len, field)
	na.Port, _ = r.readUint16BE(field)

	return na, nil
}
