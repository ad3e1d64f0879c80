package comm

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	ProfileObjPath = dbus.ObjectPath("/com/dosgo/morse/profile")

	bluezService   = "org.bluez"
	profileIface   = "org.bluez.Profile1"
	profileManager = "org.bluez.ProfileManager1"
)

// ProfileListener 通过 BlueZ ProfileManager1 注册 SPP 服务，
// BlueZ 负责监听和 SDP 广播，连接建立后把 socket fd 交给 NewConnection
type ProfileListener struct {
	conn       *dbus.Conn
	path       dbus.ObjectPath
	uuid       string
	name       string
	acceptChan chan Conn
	closeChan  chan struct{}
	accepted   bool
	closed     bool
	mu         sync.Mutex
}

// 内部 Profile 对象，用于导出给 D-Bus 回调
type bluetoothProfile struct {
	l *ProfileListener
}

// NewConnection 由 BlueZ 调用
func (p *bluetoothProfile) NewConnection(device dbus.ObjectPath, fd dbus.UnixFD, fdProperties map[string]dbus.Variant) *dbus.Error {
	l := p.l
	l.mu.Lock()
	if l.accepted || l.closed {
		l.mu.Unlock()
		log.Warnf("拒绝额外连接: %s", device)
		unix.Close(int(fd))
		return dbus.NewError("org.bluez.Error.Rejected", []interface{}{"only one client is served"})
	}
	l.accepted = true
	l.mu.Unlock()

	conn, err := newFileConn(int(fd), string(device))
	if err != nil {
		// 还没有客户端，允许 BlueZ 下次再交连接过来
		l.mu.Lock()
		l.accepted = false
		l.mu.Unlock()
		return dbus.MakeFailedError(err)
	}

	// acceptChan 有缓冲，不阻塞 D-Bus 回调
	l.acceptChan <- conn
	return nil
}

func (p *bluetoothProfile) RequestDisconnection(device dbus.ObjectPath) *dbus.Error {
	log.Debugf("BlueZ 请求断开: %s", device)
	return nil
}

func (p *bluetoothProfile) Release() *dbus.Error {
	log.Debugln("BlueZ 释放 profile")
	return nil
}

// ListenProfile 导出 Profile1 对象并向 BlueZ 注册，channel 为 0 时由 BlueZ 选择通道
func ListenProfile(uuid, name string, channel int) (*ProfileListener, error) {
	dconn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}

	l := &ProfileListener{
		conn:       dconn,
		path:       ProfileObjPath,
		uuid:       uuid,
		name:       name,
		acceptChan: make(chan Conn, 1),
		closeChan:  make(chan struct{}),
	}

	p := &bluetoothProfile{l: l}
	if err := dconn.Export(p, l.path, profileIface); err != nil {
		dconn.Close()
		return nil, fmt.Errorf("export profile: %w", err)
	}

	obj := dconn.Object(bluezService, "/org/bluez")
	err = obj.Call(profileManager+".RegisterProfile", 0, l.path, uuid, profileOptions(name, channel)).Store()
	if err != nil {
		dconn.Export(nil, l.path, profileIface)
		dconn.Close()
		return nil, fmt.Errorf("RegisterProfile failed: %w", err)
	}

	return l, nil
}

func profileOptions(name string, channel int) map[string]dbus.Variant {
	options := map[string]dbus.Variant{
		"Name":                  dbus.MakeVariant(name),
		"Role":                  dbus.MakeVariant("server"),
		"RequireAuthentication": dbus.MakeVariant(false),
		"RequireAuthorization":  dbus.MakeVariant(false),
	}
	if channel > 0 {
		options["Channel"] = dbus.MakeVariant(uint16(channel))
	}
	return options
}

// Accept 阻塞等待直到新的蓝牙连接进入
func (l *ProfileListener) Accept() (Conn, error) {
	select {
	case conn := <-l.acceptChan:
		return conn, nil
	case <-l.closeChan:
		return nil, ErrListenerClosed
	}
}

// Close 注销 Profile 并关闭 D-Bus 连接
func (l *ProfileListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	close(l.closeChan)

	obj := l.conn.Object(bluezService, "/org/bluez")
	if err := obj.Call(profileManager+".UnregisterProfile", 0, l.path).Err; err != nil {
		log.Debugf("UnregisterProfile: %v", err)
	}
	l.conn.Export(nil, l.path, profileIface) // 移除导出
	return l.conn.Close()
}

func (l *ProfileListener) Addr() string {
	return fmt.Sprintf("%s (%s)", l.name, l.uuid)
}
