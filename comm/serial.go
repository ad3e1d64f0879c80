package comm

import (
	"fmt"
	"sync"

	"github.com/tarm/serial"
)

// SerialListener 读取 `rfcomm watch` 创建的 tty 设备，打开设备即视为接受连接
type SerialListener struct {
	device string
	baud   int

	mu       sync.Mutex
	port     *serial.Port
	accepted bool
	closed   bool
}

func ListenSerial(device string, baud int) *SerialListener {
	return &SerialListener{device: device, baud: baud}
}

func (l *SerialListener) Accept() (Conn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrListenerClosed
	}
	if l.accepted {
		return nil, fmt.Errorf("serial device %s already opened", l.device)
	}

	c := &serial.Config{Name: l.device, Baud: l.baud}
	port, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.device, err)
	}
	l.port = port
	l.accepted = true
	return &serialConn{port: port, listener: l}, nil
}

// Close 只标记关闭，已打开的设备由 serialConn.Close 释放
func (l *SerialListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return nil
}

func (l *SerialListener) Addr() string { return l.device }

type serialConn struct {
	port     *serial.Port
	listener *SerialListener
	once     sync.Once
	err      error
}

func (c *serialConn) Read(p []byte) (int, error)  { return c.port.Read(p) }
func (c *serialConn) Write(p []byte) (int, error) { return c.port.Write(p) }

func (c *serialConn) Close() error {
	c.once.Do(func() { c.err = c.port.Close() })
	return c.err
}

func (c *serialConn) RemoteAddr() string { return c.listener.device }
