package comm

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// 标准串口服务 (SPP) UUID
	SerialPortUUID     = "00001101-0000-1000-8000-00805F9B34FB"
	DefaultServiceName = "MorseServer"
	DefaultBufferSize  = 1024
	DefaultSerialDev   = "/dev/rfcomm0"
	DefaultBaudRate    = 9600

	TransportProfile = "profile"
	TransportSocket  = "socket"
	TransportSerial  = "serial"
)

const ConfigFileName = "_config.json"

type Config struct {
	Transport    string
	ServiceName  string
	ServiceUUID  string
	Channel      int // 0 表示自动分配
	Adapter      string
	Discoverable bool
	SerialDevice string
	BaudRate     int
	BufferSize   int
	Speed        float64
	Drain        int // 毫秒，0 表示退出时不等待播放
	Color        bool
	LogLevel     string
}

func DefaultConfig() *Config {
	return &Config{
		Transport:    TransportProfile,
		ServiceName:  DefaultServiceName,
		ServiceUUID:  SerialPortUUID,
		SerialDevice: DefaultSerialDev,
		BaudRate:     DefaultBaudRate,
		BufferSize:   DefaultBufferSize,
		Speed:        1,
		Color:        true,
		LogLevel:     "info",
	}
}

// DrainTimeout 返回连接关闭后等待播放结束的时长
func (c *Config) DrainTimeout() time.Duration {
	return time.Duration(c.Drain) * time.Millisecond
}

// Normalize 把零值和非法值恢复成默认值
func (c *Config) Normalize() {
	def := DefaultConfig()
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	if c.Transport == "" {
		c.Transport = def.Transport
	}
	if c.ServiceName == "" {
		c.ServiceName = def.ServiceName
	}
	if c.ServiceUUID == "" {
		c.ServiceUUID = def.ServiceUUID
	}
	if c.Channel < 0 || c.Channel > 30 {
		c.Channel = 0
	}
	if c.SerialDevice == "" {
		c.SerialDevice = def.SerialDevice
	}
	if c.BaudRate <= 0 {
		c.BaudRate = def.BaudRate
	}
	if c.BufferSize <= 0 {
		c.BufferSize = def.BufferSize
	}
	if c.Speed <= 0 {
		c.Speed = def.Speed
	}
	if c.Drain < 0 {
		c.Drain = 0
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

func (c *Config) Validate() error {
	switch c.Transport {
	case TransportProfile, TransportSocket, TransportSerial:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if !uuidPattern(c.ServiceUUID) {
		return fmt.Errorf("invalid service uuid %q", c.ServiceUUID)
	}
	return nil
}

// 8-4-4-4-12 十六进制格式
func uuidPattern(s string) bool {
	parts := strings.Split(s, "-")
	if len(parts) != 5 {
		return false
	}
	for i, want := range []int{8, 4, 4, 4, 12} {
		if len(parts[i]) != want {
			return false
		}
		for _, r := range parts[i] {
			if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
				return false
			}
		}
	}
	return true
}

// SaveConfig 保存配置到 JSON 文件
func SaveConfig(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ") // 格式化输出，方便阅读
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	log.Printf("配置已保存: %s", path)
	return nil
}

// LoadConfig 从 JSON 文件读取配置，文件不存在时使用默认值
func LoadConfig(path string) *Config {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warnf("读取配置失败: %v", err)
		} else {
			log.Debugf("没有配置文件 %s，使用默认配置", path)
		}
		return cfg
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		log.Warnf("解析配置失败: %v", err)
	}
	cfg.Normalize()
	return cfg
}
