// Package netsdr is a reference implementation of the tuner.Reader and
// tuner.Controller boundary (§1) against a ka9q-radio-style networked
// SDR front end: raw I/Q samples arrive as RTP/UDP multicast packets,
// and tuning commands are sent back as UDP datagrams to a control
// socket. It is a concrete collaborator behind the interfaces in
// internal/tuner, not part of the spec'd core itself.
package netsdr

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"net"
	"sync"
	"syscall"

	"github.com/pion/rtp"
	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"

	"github.com/kchmck/p25rx/internal/p25const"
)

// Reader receives 8-bit I/Q payloads carried in RTP/UDP multicast
// packets from a networked tuner front end, unwraps the RTP framing,
// and delivers the raw payload bytes to the demod reader task's
// callback.
type Reader struct {
	dataAddr *net.UDPAddr
	iface    *net.Interface

	mu      sync.Mutex
	conn    *net.UDPConn
	running bool
}

// NewReader builds a Reader bound to a multicast data address.
func NewReader(dataAddr *net.UDPAddr, iface *net.Interface) *Reader {
	return &Reader{dataAddr: dataAddr, iface: iface}
}

// Start opens the multicast socket and runs the receive loop on its
// own goroutine, invoking fn with each packet's raw I/Q payload until
// Close is called.
func (r *Reader) Start(fn func([]byte)) error {
	conn, err := setupDataSocket(r.dataAddr, r.iface)
	if err != nil {
		return fmt.Errorf("netsdr: setup data socket: %w", err)
	}

	r.mu.Lock()
	r.conn = conn
	r.running = true
	r.mu.Unlock()

	go r.recvLoop(conn, fn)
	return nil
}

func (r *Reader) recvLoop(conn *net.UDPConn, fn func([]byte)) {
	buf := make([]byte, p25const.BufBytes+256) // headroom for RTP header
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			r.mu.Lock()
			stillRunning := r.running
			r.mu.Unlock()
			if !stillRunning {
				return
			}
			log.Printf("netsdr: read error: %v", err)
			continue
		}

		packet := &rtp.Packet{}
		if err := packet.Unmarshal(buf[:n]); err != nil {
			log.Printf("netsdr: RTP unmarshal error: %v", err)
			continue
		}
		fn(packet.Payload)
	}
}

// Close stops the receive loop and releases the socket.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

func setupDataSocket(addr *net.UDPAddr, iface *net.Interface) (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
					sockErr = fmt.Errorf("SO_REUSEPORT: %w", err)
					return
				}
				if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
					sockErr = fmt.Errorf("SO_REUSEADDR: %w", err)
					return
				}
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	conn, err := lc.ListenPacket(context.Background(), "udp4", addr.String())
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	udpConn := conn.(*net.UDPConn)

	if err := udpConn.SetReadBuffer(1024 * 1024); err != nil {
		log.Printf("netsdr: warning: failed to set read buffer size: %v", err)
	}

	p := ipv4.NewPacketConn(udpConn)
	if iface != nil {
		if err := p.JoinGroup(iface, addr); err != nil {
			log.Printf("netsdr: warning: failed to join multicast group on %s: %v", iface.Name, err)
		}
	}
	return udpConn, nil
}

// controlTag identifies a field in the little-endian tag/length/value
// command encoding sent to the tuner front end's control socket.
type controlTag byte

const (
	tagCenterFreq controlTag = 1
	tagGain       controlTag = 2
	tagSampleRate controlTag = 3
	tagPPM        controlTag = 4
	tagAGC        controlTag = 5
)

// Controller sends tuning commands as small tag/length/value datagrams
// to the front end's control address.
type Controller struct {
	mu   sync.Mutex
	conn *net.UDPConn
}

// NewController dials a UDP socket toward the control address. No
// packets are sent until the first Set* call.
func NewController(controlAddr *net.UDPAddr) (*Controller, error) {
	conn, err := net.DialUDP("udp4", nil, controlAddr)
	if err != nil {
		return nil, fmt.Errorf("netsdr: dial control: %w", err)
	}
	return &Controller{conn: conn}, nil
}

func (c *Controller) send(tag controlTag, value uint64) error {
	buf := make([]byte, 10)
	buf[0] = byte(tag)
	buf[1] = 8
	binary.LittleEndian.PutUint64(buf[2:], value)

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.conn.Write(buf)
	return err
}

// SetCenterFreq retunes the front end.
func (c *Controller) SetCenterFreq(freq p25const.Hz) error {
	return c.send(tagCenterFreq, uint64(freq))
}

// SetTunerGain sets a fixed gain in dB, sent in thousandths of a dB.
// It does not switch on AGC; EnableAGC does that.
func (c *Controller) SetTunerGain(gain float64) error {
	return c.send(tagGain, uint64(int64(gain*1000)))
}

// SetSampleRate sets the front end's native sample rate.
func (c *Controller) SetSampleRate(rate uint32) error {
	return c.send(tagSampleRate, uint64(rate))
}

// SetPPM sets the frequency-correction offset in parts per million.
func (c *Controller) SetPPM(ppm int) error {
	return c.send(tagPPM, uint64(int64(ppm)))
}

// EnableAGC toggles automatic gain control.
func (c *Controller) EnableAGC(enabled bool) error {
	v := uint64(0)
	if enabled {
		v = 1
	}
	return c.send(tagAGC, v)
}

// Close releases the control socket.
func (c *Controller) Close() error {
	return c.conn.Close()
}
