// Package controlproto is the UDP loopback control channel between the
// capsulenv CLI and a running supervisor: one datagram request, one
// datagram response, max 4096 bytes. The server's read loop sets a
// short deadline on every receive so polling it never blocks the
// supervisor's cooperative tick.
package controlproto

import (
	"errors"
	"net"
	"time"

	"github.com/capsulenv/capsulenv/internal/cerr"
	"github.com/capsulenv/capsulenv/internal/wire"
)

// MaxDatagramSize bounds both requests and responses.
const MaxDatagramSize = 4096

// pollTimeout is how long the server's ReadFromUDP call blocks before
// returning control to the supervisor's cooperative loop.
const pollTimeout = 10 * time.Millisecond

// Handler answers one decoded Request. Implemented by the supervisor's
// command dispatcher; kept as an interface here so this package has no
// dependency on internal/supervisor.
type Handler interface {
	Handle(req wire.Request) wire.Response
}

// Server owns the bound loopback UDP socket.
type Server struct {
	conn *net.UDPConn
}

// Listen binds a UDP socket on loopback. Passing port 0 lets the OS
// choose an ephemeral port; callers read Server.Port() afterward to
// learn it (the runtime writes it to the capsule.port file).
func Listen(port int) (*Server, error) {
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, cerr.CouldNotStartUDPServer(err.Error())
	}
	return &Server{conn: conn}, nil
}

// Port returns the bound local port.
func (s *Server) Port() int {
	return s.conn.LocalAddr().(*net.UDPAddr).Port
}

// Close releases the socket.
func (s *Server) Close() error { return s.conn.Close() }

// PollOnce services at most one pending datagram and returns
// immediately (within pollTimeout) if none is waiting, so the caller's
// cooperative loop never blocks on network I/O for longer than that.
func (s *Server) PollOnce(h Handler) error {
	buf := make([]byte, MaxDatagramSize)
	s.conn.SetReadDeadline(time.Now().Add(pollTimeout))
	n, addr, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil
		}
		return err
	}

	req, err := wire.DecodeRequest(buf[:n])
	if err != nil {
		resp := wire.Response{Kind: wire.RespError, Err: cerr.InvalidDataFormat()}
		_, _ = s.conn.WriteToUDP(wire.EncodeResponse(resp), addr)
		return nil
	}

	resp := h.Handle(req)
	_, err = s.conn.WriteToUDP(wire.EncodeResponse(resp), addr)
	return err
}
