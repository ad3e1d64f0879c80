package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"dosgo/morseServer/comm"

	log "github.com/sirupsen/logrus"
)

// ErrAccept 表示还没有建立会话就失败了，调用方应当按启动失败处理
var ErrAccept = errors.New("accept failed")

// Player 接收一条消息并在后台播放，不阻塞调用方
type Player interface {
	Start(code string)
}

// MorseServer 只服务一个客户端：等待连接，逐次读取消息交给 Player，断开后退出
type MorseServer struct {
	listener comm.Listener
	player   Player
	out      io.Writer
	bufSize  int
}

// NewMorseServer 创建服务，bufSize <= 0 时使用 1024
func NewMorseServer(listener comm.Listener, player Player, out io.Writer, bufSize int) *MorseServer {
	if bufSize <= 0 {
		bufSize = comm.DefaultBufferSize
	}
	return &MorseServer{
		listener: listener,
		player:   player,
		out:      out,
		bufSize:  bufSize,
	}
}

// Serve 阻塞直到客户端断开、读取出错或 ctx 取消。
// 无论哪种退出方式，客户端连接和监听器都只关闭一次。
func (s *MorseServer) Serve(ctx context.Context) error {
	closeListener := sync.OnceValue(s.listener.Close)
	defer closeListener()
	// 取消时关闭监听器，打断阻塞中的 Accept
	stopListener := context.AfterFunc(ctx, func() { closeListener() })
	defer stopListener()

	fmt.Fprintln(s.out, "Waiting for connection...")
	conn, err := s.listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", ErrAccept, err)
	}
	closeConn := sync.OnceValue(conn.Close)
	stopConn := context.AfterFunc(ctx, func() { closeConn() })
	defer stopConn()

	fmt.Fprintf(s.out, "Connected: %s\n", conn.RemoteAddr())
	log.Debugf("客户端已连接: %s", conn.RemoteAddr())

	err = s.receiveLoop(ctx, conn)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}

	fmt.Fprintln(s.out, "Connection closed")
	if cerr := closeConn(); cerr != nil {
		log.Debugf("关闭客户端连接: %v", cerr)
	}
	if cerr := closeListener(); cerr != nil {
		log.Debugf("关闭监听器: %v", cerr)
	}
	return err
}

// receiveLoop 返回 nil 表示对端正常断开
func (s *MorseServer) receiveLoop(ctx context.Context, conn comm.Conn) error {
	buf := make([]byte, s.bufSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			s.handleMessage(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				log.Debugf("收到关闭信号，停止读取: %v", err)
				return nil
			}
			return err
		}
		// 读到 0 字节视为对端关闭
		if n == 0 {
			return nil
		}
	}
}

func (s *MorseServer) handleMessage(data []byte) {
	msg := comm.DecodeMessage(data)
	// 只含空白的消息也打印一次，但没有可播放的内容
	fmt.Fprintf(s.out, "Received: %s\n", msg)
	if msg != "" {
		s.player.Start(msg)
	}
}
