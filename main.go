package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dosgo/morseServer/blink"
	"dosgo/morseServer/comm"
	"dosgo/morseServer/comm/server"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := newRootCmd(comm.DefaultConfig()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *comm.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "morseServer",
		Short: "Bluetooth RFCOMM server that plays received Morse code as terminal blinks",
		Long: `morseServer advertises a serial port service, accepts a single client
and plays every received message ('.', '-', ' ', '/') as a blinking lamp on stdout.`,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return mergeConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", comm.ConfigFileName, "JSON config file")
	flags := cmd.Flags()
	flags.StringVarP(&cfg.Transport, "transport", "t", cfg.Transport, "profile | socket | serial")
	flags.StringVar(&cfg.ServiceName, "name", cfg.ServiceName, "advertised service name")
	flags.StringVar(&cfg.ServiceUUID, "uuid", cfg.ServiceUUID, "advertised service UUID")
	flags.IntVar(&cfg.Channel, "channel", cfg.Channel, "RFCOMM channel, 0 = automatic")
	flags.StringVar(&cfg.Adapter, "adapter", cfg.Adapter, "bluetooth adapter id, e.g. hci0")
	flags.BoolVar(&cfg.Discoverable, "discoverable", cfg.Discoverable, "power on the adapter and make it discoverable")
	flags.StringVar(&cfg.SerialDevice, "device", cfg.SerialDevice, "rfcomm tty for the serial transport")
	flags.IntVar(&cfg.BaudRate, "baud", cfg.BaudRate, "baud rate for the serial transport")
	flags.IntVar(&cfg.BufferSize, "buffer", cfg.BufferSize, "receive buffer size in bytes")
	flags.Float64Var(&cfg.Speed, "speed", cfg.Speed, "timing factor, 2 = twice as slow")
	flags.IntVar(&cfg.Drain, "drain", cfg.Drain, "milliseconds to wait for playback after the client leaves")
	flags.BoolVar(&cfg.Color, "color", cfg.Color, "colorize blink markers")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug | info | warn | error")

	cmd.AddCommand(newInitConfigCmd())
	return cmd
}

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Write the default configuration to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return comm.SaveConfig(comm.DefaultConfig(), configPath)
		},
	}
}

// mergeConfig 读取配置文件，命令行显式给出的参数优先
func mergeConfig(cmd *cobra.Command, cfg *comm.Config) error {
	fileCfg := comm.LoadConfig(configPath)
	flags := cmd.Flags()
	if !flags.Changed("transport") {
		cfg.Transport = fileCfg.Transport
	}
	if !flags.Changed("name") {
		cfg.ServiceName = fileCfg.ServiceName
	}
	if !flags.Changed("uuid") {
		cfg.ServiceUUID = fileCfg.ServiceUUID
	}
	if !flags.Changed("channel") {
		cfg.Channel = fileCfg.Channel
	}
	if !flags.Changed("adapter") {
		cfg.Adapter = fileCfg.Adapter
	}
	if !flags.Changed("discoverable") {
		cfg.Discoverable = fileCfg.Discoverable
	}
	if !flags.Changed("device") {
		cfg.SerialDevice = fileCfg.SerialDevice
	}
	if !flags.Changed("baud") {
		cfg.BaudRate = fileCfg.BaudRate
	}
	if !flags.Changed("buffer") {
		cfg.BufferSize = fileCfg.BufferSize
	}
	if !flags.Changed("speed") {
		cfg.Speed = fileCfg.Speed
	}
	if !flags.Changed("drain") {
		cfg.Drain = fileCfg.Drain
	}
	if !flags.Changed("color") {
		cfg.Color = fileCfg.Color
	}
	if !flags.Changed("log-level") {
		cfg.LogLevel = fileCfg.LogLevel
	}
	cfg.Normalize()

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	return cfg.Validate()
}

func run(ctx context.Context, cfg *comm.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Discoverable {
		if err := comm.PrepareAdapter(cfg.Adapter); err != nil {
			log.Warnf("准备蓝牙适配器失败: %v", err)
		}
	}

	listener, err := listen(cfg)
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	log.Infof("服务已启动: %s", listener.Addr())

	player := blink.NewPlayer(os.Stdout,
		blink.WithTiming(blink.DefaultTiming().Scale(cfg.Speed)),
		blink.WithColor(cfg.Color),
	)
	t := player.Timing()
	log.Debugf("播放时长: 点 %v 划 %v 熄灭 %v 字符间隔 %v 单词间隔 %v", t.Dot, t.Dash, t.Off, t.SymbolGap, t.WordGap)

	srv := server.NewMorseServer(listener, player, os.Stdout, cfg.BufferSize)
	if err := srv.Serve(ctx); err != nil {
		// 没等到客户端就失败属于启动失败
		if errors.Is(err, server.ErrAccept) {
			return err
		}
		// 正常断开和读取错误都按正常退出处理
		log.Debugf("会话结束: %v", err)
	}

	if d := cfg.DrainTimeout(); d > 0 {
		wctx, cancel := context.WithTimeout(context.Background(), d)
		defer cancel()
		if err := player.Wait(wctx); err != nil {
			log.Debugf("等待播放结束超时: %v", err)
		}
	}
	return nil
}

func listen(cfg *comm.Config) (comm.Listener, error) {
	switch cfg.Transport {
	case comm.TransportSocket:
		l, err := comm.ListenSocket(cfg.Channel)
		if err != nil {
			return nil, err
		}
		fmt.Printf("Listening on RFCOMM channel %d\n", l.Channel())
		return l, nil
	case comm.TransportSerial:
		return comm.ListenSerial(cfg.SerialDevice, cfg.BaudRate), nil
	default:
		l, err := comm.ListenProfile(cfg.ServiceUUID, cfg.ServiceName, cfg.Channel)
		if err != nil {
			return nil, err
		}
		fmt.Printf("Advertising %s\n", l.Addr())
		return l, nil
	}
}

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: time.DateTime})
}
