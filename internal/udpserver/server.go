// Package udpserver accepts one-shot structured log submissions over UDP.
// Each datagram carries one complete JSON-encoded entry; there is no
// framing, acknowledgment, or backpressure. Loss is the protocol's nature.
package udpserver

import (
	"net"
	"sync"
	"time"

	"github.com/uelogd/uelogd/internal/model"
	"github.com/uelogd/uelogd/internal/serverlog"
	"github.com/valyala/fastjson"
)

// DefaultMaxDatagramSize is the read buffer size for incoming packets.
const DefaultMaxDatagramSize = 64 * 1024

// Journal is the optional durable write-ahead hook: Append runs before the
// store insert, Commit after it succeeds.
type Journal interface {
	Append(entry *model.LogEntry) (uint64, error)
	Commit(seq uint64) error
}

// ServerConfig holds tunable parameters for the UDP server.
type ServerConfig struct {
	MaxDatagramSize int
	Journal         Journal
}

// Server reads datagrams and forwards parsed entries to the store.
type Server struct {
	addr    string
	writer  model.EntryWriter
	journal Journal
	bufSize int

	conn     *net.UDPConn
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	parsers fastjson.ParserPool
}

// NewServer creates a UDP server. Default addr is "127.0.0.1:9999".
func NewServer(addr string, writer model.EntryWriter, conf ...ServerConfig) *Server {
	if addr == "" {
		addr = "127.0.0.1:9999"
	}
	s := &Server{
		addr:    addr,
		writer:  writer,
		bufSize: DefaultMaxDatagramSize,
		done:    make(chan struct{}),
	}
	if len(conf) > 0 {
		if conf[0].MaxDatagramSize > 0 {
			s.bufSize = conf[0].MaxDatagramSize
		}
		s.journal = conf[0].Journal
	}
	return s
}

// Start binds the socket and spawns the receive loop.
func (s *Server) Start() error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	s.conn = conn

	s.wg.Add(1)
	go s.readLoop()

	serverlog.Logf("ingestion", "listening for log datagrams on %s", conn.LocalAddr())
	return nil
}

// readLoop is rearmed immediately after every datagram, parsed or not, so
// a burst of malformed traffic cannot starve valid traffic.
func (s *Server) readLoop() {
	defer s.wg.Done()
	buf := make([]byte, s.bufSize)

	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				serverlog.Errorf("ingestion", "read error: %v", err)
				continue
			}
		}
		if n == 0 {
			continue
		}
		s.handleDatagram(buf[:n])
	}
}

func (s *Server) handleDatagram(payload []byte) {
	entry, err := s.parseEntry(payload)
	if err != nil {
		serverlog.Errorf("ingestion", "dropped malformed packet: %v", err)
		return
	}

	// Server clock wins over whatever the producer sent.
	entry.ReceivedAt = wallClock()

	var seq uint64
	if s.journal != nil {
		if seq, err = s.journal.Append(entry); err != nil {
			serverlog.Errorf("ingestion", "journal append failed: %v", err)
		}
	}

	if _, err := s.writer.Insert(entry); err != nil {
		serverlog.Errorf("ingestion", "insert failed: %v", err)
		return
	}

	if s.journal != nil && seq > 0 {
		if err := s.journal.Commit(seq); err != nil {
			serverlog.Errorf("ingestion", "journal commit failed: %v", err)
		}
	}
}

// parseEntry decodes one wire entry. Absent fields take the producer-side
// defaults: source "unknown", category "LogTemp", verbosity Log.
func (s *Server) parseEntry(payload []byte) (*model.LogEntry, error) {
	p := s.parsers.Get()
	defer s.parsers.Put(p)

	v, err := p.ParseBytes(payload)
	if err != nil {
		return nil, err
	}

	entry := &model.LogEntry{
		Source:     "unknown",
		Category:   "LogTemp",
		Verbosity:  model.Log,
		Message:    string(v.GetStringBytes("message")),
		Timestamp:  v.GetFloat64("timestamp"),
		SessionID:  string(v.GetStringBytes("session_id")),
		InstanceID: string(v.GetStringBytes("instance_id")),
	}
	if b := v.GetStringBytes("source"); len(b) > 0 {
		entry.Source = string(b)
	}
	if b := v.GetStringBytes("category"); len(b) > 0 {
		entry.Category = string(b)
	}
	if verb := v.Get("verbosity"); verb != nil {
		switch verb.Type() {
		case fastjson.TypeString:
			entry.Verbosity = model.ParseVerbosity(string(verb.GetStringBytes()))
		case fastjson.TypeNumber:
			entry.Verbosity = model.Verbosity(verb.GetInt())
		}
	}
	if v.Exists("frame") {
		frame := v.GetInt64("frame")
		entry.Frame = &frame
	}
	if b := v.GetStringBytes("file"); len(b) > 0 {
		file := string(b)
		entry.File = &file
	}
	if v.Exists("line") {
		line := v.GetInt("line")
		entry.Line = &line
	}
	return entry, nil
}

// Stop shuts the receiver down by closing the socket, which interrupts the
// blocking read, then waits for the loop to exit. Safe to call repeatedly.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.conn != nil {
			s.conn.Close()
		}
		s.wg.Wait()
		serverlog.Logf("ingestion", "datagram receiver stopped")
	})
}

// Addr returns the active listen address. Before Start, it returns the
// configured address.
func (s *Server) Addr() string {
	if s.conn != nil {
		return s.conn.LocalAddr().String()
	}
	return s.addr
}

// wallClock is the server clock in float seconds, overridable in tests.
var wallClock = func() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
