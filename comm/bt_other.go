//go:build !linux

package comm

import (
	"errors"
	"runtime"
)

var errUnsupported = errors.New("bluetooth rfcomm is only supported on linux, got " + runtime.GOOS)

func connectByAddr(macAddrStr string) (Conn, error) { return nil, errUnsupported }

type SocketListener struct{}

func ListenSocket(channel int) (*SocketListener, error) { return nil, errUnsupported }

func (l *SocketListener) Channel() int          { return 0 }
func (l *SocketListener) Accept() (Conn, error) { return nil, errUnsupported }
func (l *SocketListener) Close() error          { return nil }
func (l *SocketListener) Addr() string          { return "" }

type ProfileListener struct{}

func ListenProfile(uuid, name string, channel int) (*ProfileListener, error) {
	return nil, errUnsupported
}

func (l *ProfileListener) Accept() (Conn, error) { return nil, errUnsupported }
func (l *ProfileListener) Close() error          { return nil }
func (l *ProfileListener) Addr() string          { return "" }

func PrepareAdapter(adapterID string) error { return errUnsupported }
