package comm

import (
	"fmt"

	"github.com/muka/go-bluetooth/bluez/profile/adapter"
	log "github.com/sirupsen/logrus"
)

// PrepareAdapter 打开本地控制器并设为可发现，adapterID 为空时使用默认适配器 (hci0)
func PrepareAdapter(adapterID string) error {
	var (
		a   *adapter.Adapter1
		err error
	)
	if adapterID == "" {
		a, err = adapter.GetDefaultAdapter()
	} else {
		a, err = adapter.GetAdapter(adapterID)
	}
	if err != nil {
		return fmt.Errorf("get adapter: %w", err)
	}

	if err := a.SetPowered(true); err != nil {
		return fmt.Errorf("power on adapter: %w", err)
	}
	// 0 表示一直可发现
	if err := a.SetDiscoverableTimeout(0); err != nil {
		log.Debugf("设置可发现超时失败: %v", err)
	}
	if err := a.SetDiscoverable(true); err != nil {
		return fmt.Errorf("set discoverable: %w", err)
	}

	addr, _ := a.GetAddress()
	log.Infof("蓝牙适配器 %s 已设为可发现", addr)
	return nil
}
