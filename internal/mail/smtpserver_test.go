package mail

import (
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
)

// fakeServer is a minimal SMTP server recording what it receives.
type fakeServer struct {
	t        *testing.T
	ln       net.Listener
	refuse   map[string]bool
	failData bool

	mu       sync.Mutex
	from     []string
	rcpts    []string
	messages []string
	commands []string
	wg       sync.WaitGroup
}

func newFakeServer(t *testing.T, refuse ...string) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeServer{t: t, ln: ln, refuse: make(map[string]bool)}
	for _, r := range refuse {
		s.refuse[r] = true
	}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(func() {
		ln.Close()
		s.wg.Wait()
	})
	return s
}

func (s *fakeServer) Addr() string {
	return s.ln.Addr().String()
}

func (s *fakeServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.handle(conn)
	}
}

func (s *fakeServer) handle(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	reply := func(line string) { _ = tp.PrintfLine("%s", line) }

	reply("220 fake.example.com ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		s.record(&s.commands, line)
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])

		switch verb {
		case "EHLO", "HELO":
			reply("250 fake.example.com")
		case "MAIL":
			s.record(&s.from, argAddress(line))
			reply("250 OK")
		case "RCPT":
			addr := argAddress(line)
			if s.refuse[addr] {
				reply("550 no such user")
				continue
			}
			s.record(&s.rcpts, addr)
			reply("250 OK")
		case "DATA":
			reply("354 go ahead")
			data, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			if s.failData {
				reply("554 rejected")
				continue
			}
			s.record(&s.messages, string(data))
			reply("250 queued")
		case "RSET", "NOOP":
			reply("250 OK")
		case "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 not implemented")
		}
	}
}

func (s *fakeServer) record(dst *[]string, v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*dst = append(*dst, v)
}

func (s *fakeServer) snapshot() (from, rcpts, messages, commands []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.from...),
		append([]string(nil), s.rcpts...),
		append([]string(nil), s.messages...),
		append([]string(nil), s.commands...)
}

// argAddress pulls addr out of "MAIL FROM:<addr> ..." or "RCPT TO:<addr>".
func argAddress(line string) string {
	start := strings.Index(line, "<")
	end := strings.Index(line, ">")
	if start < 0 || end < start {
		return ""
	}
	return line[start+1 : end]
}
