package osc

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"
)

type lightMarshaler interface {
	LightMarshalBinary(data *bytes.Buffer) error
}

// Client sends OSC packets to one receiver over UDP. It is safe for concurrent use.
type Client struct {
	conn net.Conn

	mu  sync.Mutex
	buf bytes.Buffer
}

// Dial creates a new OSC Client with a connection to the specified server.
func Dial(addr string) (*Client, error) {
	return DialContext(context.Background(), addr)
}

// DialContext is Dial with a context bounding address resolution.
func DialContext(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("Dial: %w", err)
	}
	return &Client{conn: conn}, nil
}

// LocalAddr returns the address packets are sent from.
func (c *Client) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Send encodes packet and writes it as one datagram.
func (c *Client) Send(packet Packet) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buf.Reset()
	if lp, ok := packet.(lightMarshaler); ok {
		if err := lp.LightMarshalBinary(&c.buf); err != nil {
			return fmt.Errorf("Send: %w", err)
		}
	} else {
		data, err := packet.MarshalBinary()
		if err != nil {
			return fmt.Errorf("Send: %w", err)
		}
		c.buf.Write(data)
	}

	if c.buf.Len() > MaxPacketSize {
		return fmt.Errorf("Send: packet of %d bytes exceeds %d", c.buf.Len(), MaxPacketSize)
	}
	_, err := c.conn.Write(c.buf.Bytes())
	return err
}

// Close closes the connection to the server.
func (c *Client) Close() error {
	return c.conn.Close()
}
