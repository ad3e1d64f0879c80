package comm

import (
	"errors"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
)

var ErrListenerClosed = errors.New("listener closed")

// Conn 是一条已建立的蓝牙串口连接
type Conn interface {
	io.ReadWriteCloser
	RemoteAddr() string
}

// Listener 只负责接受连接，和 net.Listener 类似
type Listener interface {
	Accept() (Conn, error)
	Close() error
	Addr() string
}

// DecodeMessage 把一次 recv 得到的字节转成文本并去掉首尾空白
func DecodeMessage(b []byte) string {
	s := string(b)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	return strings.TrimSpace(s)
}

// fileConn 包装内核或 BlueZ 交给我们的 socket fd
type fileConn struct {
	io.ReadWriteCloser
	remote string
}

func (c *fileConn) RemoteAddr() string { return c.remote }

func NewConnectBT(macAddrStr string) *ConnectBT {
	return &ConnectBT{macAddrStr: macAddrStr}
}

// ConnectBT 是发送端使用的连接，写失败时丢弃连接，下次写入前重连
type ConnectBT struct {
	macAddrStr string
	conn       io.ReadWriteCloser
	mu         sync.Mutex // 保护 conn 的并发访问和重连过程
}

func (a *ConnectBT) connect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn != nil {
		return nil
	}
	btRaw, err := connectByAddr(a.macAddrStr)
	if err != nil {
		return err
	}
	a.conn = btRaw
	return nil
}

// Connected 报告当前是否持有连接
func (a *ConnectBT) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn != nil
}

// 实现 io.Writer
func (a *ConnectBT) Write(p []byte) (n int, err error) {
	if err := a.reconnect(); err != nil {
		return 0, err
	}
	a.mu.Lock()
	currConn := a.conn
	a.mu.Unlock()

	n, err = currConn.Write(p)
	if err != nil {
		log.Printf("蓝牙写入失败: %v, 准备重连...", err)
		currConn.Close()
		a.mu.Lock()
		a.conn = nil
		a.mu.Unlock()
	}
	return n, err
}

func (a *ConnectBT) reconnect() error {
	if a.Connected() {
		return nil
	}
	log.Printf("正在连接蓝牙: %s", a.macAddrStr)
	if err := a.connect(); err != nil {
		log.Printf("连接失败: %v", err)
		return err
	}
	log.Println("蓝牙连接成功")
	return nil
}

func (a *ConnectBT) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn != nil {
		err := a.conn.Close()
		a.conn = nil
		return err
	}
	return nil
}
