package utils

import (
	"fmt"
	"net"
	"time"
)

// LoopbackHost 本地服务只监听回环地址
const LoopbackHost = "127.0.0.1"

func CheckPortAvailable(port int) bool {
	timeout := time.Second
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(LoopbackHost, fmt.Sprintf("%d", port)), timeout)
	if err != nil {
		// 连接失败，说明端口可用
		return CheckPortListenable(port)
	}
	conn.Close()
	// 连接成功，说明端口已被占用
	return false
}

/**
 * Pick the first free loopback port
 * @param {int} preferred - First port tried
 * @param {int} span - Number of following ports that may be tried
 * @returns {int} Free port
 * @returns {error} All ports in [preferred, preferred+span] are taken
 */
func PickPort(preferred, span int) (int, error) {
	for port := preferred; port <= preferred+span; port++ {
		if port <= 0 || port > 65535 {
			continue
		}
		if CheckPortAvailable(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no free port in range %d-%d", preferred, preferred+span)
}
