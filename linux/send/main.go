// send 把标准输入的每一行通过 RFCOMM 发给 morseServer。
// 不做摩尔斯编码，输入需要已经是 '.', '-', ' ', '/' 形式。
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"dosgo/morseServer/comm"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	cmd := &cobra.Command{
		Use:          "send <bluetooth-mac>",
		Short:        "Send Morse code lines from stdin to a morseServer",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			bt := comm.NewConnectBT(args[0])
			defer bt.Close()
			return sendLines(bt, cmd.InOrStdin())
		},
	}
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// sendLines 每行单独写一次，写失败时重连后再试一次
func sendLines(w io.Writer, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		payload := []byte(line + "\n")
		if _, err := w.Write(payload); err != nil {
			log.Printf("发送失败，重试: %v", err)
			if _, err := w.Write(payload); err != nil {
				return fmt.Errorf("send %q: %w", line, err)
			}
		}
		log.Debugf("已发送: %s", line)
	}
	return scanner.Err()
}
