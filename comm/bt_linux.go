package comm

import (
	"fmt"
	"net"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

func parseMAC(macStr string) ([6]byte, error) {
	var b [6]byte
	hw, err := net.ParseMAC(macStr)
	if err != nil {
		return b, err
	}
	if len(hw) != 6 {
		return b, fmt.Errorf("invalid bluetooth address %q", macStr)
	}
	// Linux 内核存储蓝牙地址是逆序的 (BD_ADDR)
	for i := 0; i < 6; i++ {
		b[i] = hw[5-i]
	}
	return b, nil
}

// formatBdaddr 是 parseMAC 的逆过程
func formatBdaddr(b [6]byte) string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", b[5], b[4], b[3], b[2], b[1], b[0])
}

func peerString(sa unix.Sockaddr) string {
	if rc, ok := sa.(*unix.SockaddrRFCOMM); ok {
		return fmt.Sprintf("%s ch%d", formatBdaddr(rc.Addr), rc.Channel)
	}
	return "unknown"
}

// newFileConn 把 socket fd 包成 Conn，设为非阻塞后 Close 能打断阻塞中的 Read
func newFileConn(fd int, remote string) (Conn, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set nonblock: %w", err)
	}
	return &fileConn{ReadWriteCloser: os.NewFile(uintptr(fd), "rfcomm-socket"), remote: remote}, nil
}

func connectByAddr(macAddrStr string) (Conn, error) {
	// 例如 "AA:BB:CC:DD:EE:FF" -> [0xFF, 0xEE, 0xDD, 0xCC, 0xBB, 0xAA]
	addr, err := parseMAC(macAddrStr)
	if err != nil {
		return nil, err
	}

	// 不查 SDP，直接依次尝试前几个通道
	for ch := 1; ch <= 5; ch++ {
		fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.BTPROTO_RFCOMM)
		if err != nil {
			return nil, fmt.Errorf("create bluetooth socket: %w", err)
		}

		sa := &unix.SockaddrRFCOMM{
			Addr:    addr,
			Channel: uint8(ch),
		}
		if err := unix.Connect(fd, sa); err != nil {
			log.Debugf("通道 %d 连接失败: %v", ch, err)
			unix.Close(fd)
			continue
		}
		return newFileConn(fd, peerString(sa))
	}

	return nil, fmt.Errorf("no rfcomm channel accepted connection to %s", macAddrStr)
}

// SocketListener 直接在内核 RFCOMM socket 上监听，不注册 SDP 记录
type SocketListener struct {
	fd       int
	channel  uint8
	mu       sync.Mutex
	accepted bool
	closed   bool
}

// ListenSocket 绑定到 channel，channel 为 0 时由内核在 listen 时分配空闲通道
func ListenSocket(channel int) (*SocketListener, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.BTPROTO_RFCOMM)
	if err != nil {
		return nil, fmt.Errorf("create bluetooth socket: %w", err)
	}
	// 地址全 0 即 BDADDR_ANY
	if err := unix.Bind(fd, &unix.SockaddrRFCOMM{Channel: uint8(channel)}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind rfcomm channel %d: %w", channel, err)
	}
	if err := unix.Listen(fd, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen: %w", err)
	}

	sa, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("getsockname: %w", err)
	}
	l := &SocketListener{fd: fd, channel: uint8(channel)}
	if rc, ok := sa.(*unix.SockaddrRFCOMM); ok {
		l.channel = rc.Channel
	}
	return l, nil
}

func (l *SocketListener) Channel() int { return int(l.channel) }

// Accept 只接受一个连接
func (l *SocketListener) Accept() (Conn, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrListenerClosed
	}
	if l.accepted {
		l.mu.Unlock()
		return nil, fmt.Errorf("rfcomm listener already accepted a client")
	}
	fd := l.fd
	l.mu.Unlock()

	nfd, sa, err := unix.Accept(fd)
	if err != nil {
		l.mu.Lock()
		closed := l.closed
		l.mu.Unlock()
		if closed {
			return nil, ErrListenerClosed
		}
		return nil, fmt.Errorf("accept: %w", err)
	}
	unix.CloseOnExec(nfd)

	l.mu.Lock()
	l.accepted = true
	l.mu.Unlock()
	return newFileConn(nfd, peerString(sa))
}

func (l *SocketListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	// shutdown 唤醒阻塞中的 accept
	unix.Shutdown(l.fd, unix.SHUT_RDWR)
	return unix.Close(l.fd)
}

func (l *SocketListener) Addr() string {
	return fmt.Sprintf("rfcomm channel %d", l.channel)
}
