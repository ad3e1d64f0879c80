// Package blink 把 '.', '-', ' ', '/' 组成的摩尔斯码在终端上播放成闪烁效果。
package blink

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const (
	DotMarker  = "●"
	DashMarker = "▬▬▬"
)

// Timing 是一次播放中各符号的时长
type Timing struct {
	Dot       time.Duration // 点亮灯时长
	Dash      time.Duration // 划亮灯时长
	Off       time.Duration // 每次熄灭后的间隔
	SymbolGap time.Duration // ' '
	WordGap   time.Duration // '/'
	Default   time.Duration // 其它字符
}

func DefaultTiming() Timing {
	return Timing{
		Dot:       200 * time.Millisecond,
		Dash:      600 * time.Millisecond,
		Off:       200 * time.Millisecond,
		SymbolGap: 600 * time.Millisecond,
		WordGap:   1400 * time.Millisecond,
		Default:   200 * time.Millisecond,
	}
}

// Scale 按倍数缩放所有时长，f <= 0 时原样返回
func (t Timing) Scale(f float64) Timing {
	if f <= 0 {
		return t
	}
	s := func(d time.Duration) time.Duration { return time.Duration(float64(d) * f) }
	return Timing{
		Dot:       s(t.Dot),
		Dash:      s(t.Dash),
		Off:       s(t.Off),
		SymbolGap: s(t.SymbolGap),
		WordGap:   s(t.WordGap),
		Default:   s(t.Default),
	}
}

type Option func(*Player)

func WithTiming(t Timing) Option {
	return func(p *Player) { p.timing = t }
}

// WithSleep 替换等待函数，测试里用来记录时长
func WithSleep(sleep func(time.Duration)) Option {
	return func(p *Player) { p.sleep = sleep }
}

// WithColor 控制是否用 lipgloss 给灯上色
func WithColor(on bool) Option {
	return func(p *Player) { p.color = on }
}

// Player 播放摩尔斯码。多个播放可以同时进行，输出不加锁，允许交错
type Player struct {
	out    io.Writer
	timing Timing
	sleep  func(time.Duration)
	color  bool

	dot, dash string

	wg sync.WaitGroup
}

func NewPlayer(out io.Writer, opts ...Option) *Player {
	p := &Player{
		out:    out,
		timing: DefaultTiming(),
		sleep:  time.Sleep,
		color:  true,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.dot, p.dash = DotMarker, DashMarker
	if p.color {
		lamp := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
		p.dot = lamp.Render(DotMarker)
		p.dash = lamp.Render(DashMarker)
	}
	return p
}

func (p *Player) Timing() Timing { return p.timing }

// Start 在新的 goroutine 中播放，不等待完成
func (p *Player) Start(code string) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Play(code)
	}()
}

// Wait 等待所有 Start 启动的播放结束，或者 ctx 结束
func (p *Player) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Play 同步播放 code，未知字符按默认时长停顿
func (p *Player) Play(code string) {
	fmt.Fprintf(p.out, "Playing: %s\n", code)
	for _, r := range code {
		switch r {
		case '.':
			p.blink(p.dot, p.timing.Dot)
		case '-':
			p.blink(p.dash, p.timing.Dash)
		case ' ':
			p.sleep(p.timing.SymbolGap)
		case '/':
			p.sleep(p.timing.WordGap)
		default:
			p.sleep(p.timing.Default)
		}
	}
	fmt.Fprintf(p.out, "Done: %s\n", code)
}

// blink 亮灯 on 时长，然后用空格覆盖熄灭
func (p *Player) blink(lamp string, on time.Duration) {
	io.WriteString(p.out, lamp)
	p.sleep(on)
	io.WriteString(p.out, eraser(lamp))
	p.sleep(p.timing.Off)
}

func eraser(lamp string) string {
	return "\r" + strings.Repeat(" ", lipgloss.Width(lamp)) + "\r"
}
