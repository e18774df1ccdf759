package utils

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

/**
 * Create an HTTP client that verifies the server chain
 * @param {time.Duration} timeout - Whole request timeout, 0 for none
 * @param {*x509.CertPool} roots - Extra roots, nil for system roots only
 */
func NewHTTPClient(timeout time.Duration, roots *x509.CertPool) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = &tls.Config{
		MinVersion: tls.VersionTLS12,
		RootCAs:    roots,
	}
	return &http.Client{Transport: tr, Timeout: timeout}
}

/**
 *	从服务器获取一个文件，先写入临时文件，完整下载后再改名
 */
func GetFile(ctx context.Context, client *http.Client, urlStr string, savePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return fmt.Errorf("GetFile('%s') failed: %w", urlStr, err)
	}

	rsp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("GetFile('%s') failed: %w", urlStr, err)
	}
	defer rsp.Body.Close()
	if rsp.StatusCode != http.StatusOK {
		rspBody, _ := io.ReadAll(io.LimitReader(rsp.Body, 4096))
		return fmt.Errorf("GetFile('%s') code: %d, error:%s", urlStr, rsp.StatusCode, string(rspBody))
	}

	if err = os.MkdirAll(filepath.Dir(savePath), 0755); err != nil {
		return fmt.Errorf("GetFile('%s'): MkdirAll('%s') error: %w", urlStr, savePath, err)
	}
	tmpPath := savePath + ".part"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("GetFile('%s'): create('%s') error: %w", urlStr, tmpPath, err)
	}

	// 然后将响应流和文件流对接起来
	_, err = io.Copy(out, rsp.Body)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("GetFile('%s'): copy error: %w", urlStr, err)
	}
	return os.Rename(tmpPath, savePath)
}
