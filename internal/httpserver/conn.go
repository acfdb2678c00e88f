package httpserver

import (
	"bufio"
	"net"
	"strings"
	"time"

	"github.com/desaster/nethid-bridge/internal/assets"
	"github.com/desaster/nethid-bridge/internal/wsframe"
)

func (s *Server) handleConnection(conn net.Conn) {
	defer s.releaseSlot()
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(IdleTimeout)); err != nil {
		return
	}

	br := bufio.NewReaderSize(conn, RecvBufferSize)
	req, err := parseRequest(br)
	if err != nil {
		writeResponse(conn, errResponse(err))
		return
	}

	if req.Upgrade && req.WebSocketKey != "" {
		if !s.authenticated(req) {
			writeResponse(conn, ErrorJSON(401, "unauthorized"))
			return
		}
		s.upgrade(conn, br, req)
		return
	}

	s.dispatch(conn, req)
}

func errResponse(err error) Response {
	switch err {
	case errMethodNotAllowed:
		return ErrorJSON(405, "method not allowed")
	case errBodyTooLarge:
		return ErrorJSON(400, "body too large")
	default:
		return ErrorJSON(400, "malformed request")
	}
}

func (s *Server) dispatch(conn net.Conn, req *Request) {
	if route, ok := s.matchRoute(req.Method, req.URI); ok {
		if !route.NoAuth && !s.authenticated(req) {
			writeResponse(conn, ErrorJSON(401, "unauthorized"))
			return
		}
		writeResponse(conn, route.Handler(req))
		return
	}

	if req.Method != "GET" {
		writeResponse(conn, ErrorJSON(404, "not found"))
		return
	}
	s.serveStatic(conn, req.URI)
}

func (s *Server) serveStatic(conn net.Conn, uri string) {
	if a, ok := assets.Lookup(uri); ok {
		streamAsset(conn, a.ContentType, a.Bytes)
		return
	}
	if strings.HasPrefix(uri, "/api/") {
		writeResponse(conn, ErrorJSON(404, "not found"))
		return
	}
	idx := assets.Index()
	streamAsset(conn, idx.ContentType, idx.Bytes)
}

// upgrade completes the RFC 6455 handshake in place on the HTTP
// connection, hands it to the session-takeover manager, and then
// blocks serving framed-channel frames until the connection closes.
func (s *Server) upgrade(conn net.Conn, br *bufio.Reader, req *Request) {
	accept := wsframe.AcceptKey(req.WebSocketKey)
	response := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + accept + "\r\n\r\n"
	if _, err := conn.Write([]byte(response)); err != nil {
		return
	}

	// The framed-channel state never times out on idleness.
	conn.SetReadDeadline(time.Time{})

	session := s.WSManager.Takeover(conn, s.Dispatcher)
	defer s.WSManager.Release(conn, s.Dispatcher)

	if s.StatusFrame != nil {
		conn.Write(s.StatusFrame())
	}

	s.serveFrames(conn, br, session)
}

// serveFrames reads from br rather than conn directly: br may already
// hold bytes the client pipelined right after the handshake request,
// and reading from conn would silently drop them.
func (s *Server) serveFrames(conn net.Conn, br *bufio.Reader, session *wsframe.Session) {
	buf := make([]byte, 0, wsframe.ReassemblyCap+16)
	read := make([]byte, 512)

	for {
		n, err := br.Read(read)
		if err != nil {
			return
		}
		buf = append(buf, read[:n]...)

		for {
			frame, consumed, err := wsframe.ParseFrame(buf)
			if err == wsframe.ErrIncomplete {
				break
			}
			buf = buf[consumed:]
			if err == wsframe.ErrUnsupported {
				if consumed == 0 {
					return
				}
				continue
			}
			if err != nil {
				return
			}

			switch frame.Opcode {
			case wsframe.OpBinary:
				session.ApplyCommand(s.Dispatcher, frame.Payload)
			case wsframe.OpClose:
				conn.Write(wsframe.EncodeFrame(wsframe.OpClose, nil))
				return
			case wsframe.OpPing:
				conn.Write(wsframe.EncodePong(frame.Payload))
			}
		}
	}
}
