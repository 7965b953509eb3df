package controlproto

import (
	"fmt"
	"net"
	"time"

	"github.com/capsulenv/capsulenv/internal/wire"
)

// clientTimeout bounds how long the CLI waits for a supervisor reply
// before concluding it isn't running.
const clientTimeout = time.Second

// Exchange sends req to the supervisor listening on loopback port and
// returns its decoded response: one write, one read, one round trip.
func Exchange(port int, req wire.Request) (wire.Response, error) {
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
	conn, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		return wire.Response{}, fmt.Errorf("dial supervisor: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Write(wire.EncodeRequest(req)); err != nil {
		return wire.Response{}, fmt.Errorf("send request: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(clientTimeout))
	buf := make([]byte, MaxDatagramSize)
	n, err := conn.Read(buf)
	if err != nil {
		return wire.Response{}, fmt.Errorf("waiting for supervisor reply: %w", err)
	}

	resp, err := wire.DecodeResponse(buf[:n])
	if err != nil {
		return wire.Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}
