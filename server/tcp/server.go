// Package tcp implements the line-oriented text listener clients speak to:
// accept loop, per-connection worker pool, and a registry of open
// connections. It is grounded on the base transport's accept-loop and
// semaphore-bounded worker-pool shape, adapted from fixed-size binary framing
// to newline-delimited text commands.
package tcp

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/emberkv/ember/lib/common"
)

const maxLineBytes = 512 * 1024

// Server accepts connections on a single TCP endpoint and dispatches each
// request line to a Handler, one worker pool per connection.
type Server struct {
	listener          net.Listener
	handler           *Handler
	logger            *common.Logger
	timeout           time.Duration
	maxWorkersPerConn int

	connections *xsync.MapOf[int64, net.Conn]
	nextConnID  int64
	connIDMu    sync.Mutex

	closing   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Config holds the parameters Server needs beyond the *store.Router the
// Handler already wraps.
type Config struct {
	Endpoint          string
	TimeoutSecond     int64
	MaxWorkersPerConn int
}

// New creates a Server listening on cfg.Endpoint. It does not start
// accepting connections; call Serve for that.
func New(cfg Config, handler *Handler, logger *common.Logger) (*Server, error) {
	listener, err := net.Listen("tcp", cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	maxWorkers := cfg.MaxWorkersPerConn
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	return &Server{
		listener:          listener,
		handler:           handler,
		logger:            logger,
		timeout:           time.Duration(cfg.TimeoutSecond) * time.Second,
		maxWorkersPerConn: maxWorkers,
		connections:       xsync.NewMapOf[int64, net.Conn](),
		closing:           make(chan struct{}),
	}, nil
}

// Addr returns the listener's bound address, useful when Endpoint uses a
// ":0" ephemeral port in tests.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// ActiveConnections returns the number of currently open connections.
func (s *Server) ActiveConnections() int { return s.connections.Size() }

// Serve runs the accept loop until Close is called. It blocks the calling
// goroutine.
func (s *Server) Serve() error {
	s.logger.Infof("tcp server listening on %s", s.listener.Addr())

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closing:
				s.wg.Wait()
				return nil
			default:
				s.logger.Errorf("accept error: %v", err)
				continue
			}
		}

		if tcpConn, ok := conn.(*net.TCPConn); ok {
			_ = tcpConn.SetNoDelay(true)
			_ = tcpConn.SetKeepAlive(true)
			_ = tcpConn.SetKeepAlivePeriod(30 * time.Second)
		}

		id := s.registerConn(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(id, conn)
		}()
	}
}

// Close stops the accept loop by closing the listener and returns at once;
// it does not wait for open connections. Serve waits for them to finish
// before it returns.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closing)
		err = s.listener.Close()
	})
	return err
}

func (s *Server) registerConn(conn net.Conn) int64 {
	s.connIDMu.Lock()
	id := s.nextConnID
	s.nextConnID++
	s.connIDMu.Unlock()

	s.connections.Store(id, conn)
	s.handler.recordConnectionOpened()
	return id
}

func (s *Server) deregisterConn(id int64, conn net.Conn) {
	s.connections.Delete(id)
	_ = conn.Close()
	s.handler.recordConnectionClosed()
}

// handleConnection reads newline-delimited request lines and dispatches each
// to a worker, bounded by maxWorkersPerConn, mirroring the base transport's
// semaphore-and-waitgroup shape but writing responses inline under a mutex
// so interleaved replies never tear. Each worker waits for the previous
// line's reply to be written before writing its own, so replies go out in
// request order.
func (s *Server) handleConnection(id int64, conn net.Conn) {
	defer s.deregisterConn(id, conn)

	reader := bufio.NewReaderSize(conn, 4096)
	workerSemaphore := make(chan struct{}, s.maxWorkersPerConn)
	var wg sync.WaitGroup
	var writeMu sync.Mutex
	prevWritten := make(chan struct{})
	close(prevWritten)

	for {
		if s.timeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
				s.logger.Errorf("failed to set read deadline: %v", err)
				break
			}
		}

		line, err := readLine(reader)
		if err != nil {
			break
		}

		workerSemaphore <- struct{}{}
		wg.Add(1)
		written := make(chan struct{})
		go func(line string, prev <-chan struct{}, written chan struct{}) {
			defer func() {
				close(written)
				<-workerSemaphore
				wg.Done()
			}()

			resp, shouldClose := s.handler.Handle(line)

			<-prev
			writeMu.Lock()
			defer writeMu.Unlock()
			if s.timeout > 0 {
				_ = conn.SetWriteDeadline(time.Now().Add(s.timeout))
			}
			if _, werr := conn.Write(resp.Encode()); werr != nil {
				s.logger.Errorf("failed to write response: %v", werr)
			}
			if shouldClose {
				_ = conn.Close()
			}
		}(line, prevWritten, written)
		prevWritten = written
	}

	wg.Wait()
}

// readLine reads a single CRLF- or LF-terminated line, bounded to
// maxLineBytes to keep a misbehaving client from exhausting memory.
func readLine(r *bufio.Reader) (string, error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if len(buf)+len(chunk) > maxLineBytes {
			return "", errLineTooLong
		}
		buf = append(buf, chunk...)
		if err == nil {
			break
		}
		if err != bufio.ErrBufferFull {
			return "", err
		}
	}
	line := string(buf)
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, nil
}

var errLineTooLong = &lineTooLongError{}

type lineTooLongError struct{}

func (*lineTooLongError) Error() string { return "request line exceeds maximum length" }
