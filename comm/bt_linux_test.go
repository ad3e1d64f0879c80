package comm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestParseMAC(t *testing.T) {
	addr, err := parseMAC("AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)
	assert.Equal(t, [6]byte{0xFF, 0xEE, 0xDD, 0xCC, 0xBB, 0xAA}, addr)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", formatBdaddr(addr))

	_, err = parseMAC("not-a-mac")
	assert.Error(t, err)
	_, err = parseMAC("00:00:5e:00:53:01:02:03")
	assert.Error(t, err)
}

func TestPeerString(t *testing.T) {
	sa := &unix.SockaddrRFCOMM{Addr: [6]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}, Channel: 3}
	assert.Equal(t, "06:05:04:03:02:01 ch3", peerString(sa))
	assert.Equal(t, "unknown", peerString(&unix.SockaddrUnix{Name: "/tmp/x"}))
}

func TestProfileOptions(t *testing.T) {
	opts := profileOptions("MorseServer", 0)
	assert.Equal(t, "MorseServer", opts["Name"].Value())
	assert.Equal(t, "server", opts["Role"].Value())
	assert.NotContains(t, opts, "Channel")

	opts = profileOptions("MorseServer", 7)
	assert.Equal(t, uint16(7), opts["Channel"].Value())
}

func TestNewFileConnWrapsSocket(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[1])

	conn, err := newFileConn(fds[0], "peer")
	require.NoError(t, err)
	assert.Equal(t, "peer", conn.RemoteAddr())

	_, err = unix.Write(fds[1], []byte(".-"))
	require.NoError(t, err)
	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, ".-", string(buf[:n]))
	assert.NoError(t, conn.Close())
}
