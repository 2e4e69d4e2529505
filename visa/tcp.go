package visa

import (
	"fmt"
	"net"
	"time"
)

// tcpManager reaches instruments with raw socket control ports, e.g. SCPI on
// port 5025. Locations look like "tcp://10.0.0.5:5025".
type tcpManager struct{}

func (tcpManager) open(addr, termination string, timeout time.Duration) (Session, error) {
	conn, err := net.DialTimeout("tcp", addr, openTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if timeout > 0 {
		// A session spans exactly one exchange, so a single deadline covers
		// both the write and the read.
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set deadline on %s: %w", addr, err)
		}
	}
	return newLineSession(conn, termination), nil
}
