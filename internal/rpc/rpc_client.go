package rpc

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"fcc-bootstrap/internal/logger"
)

// httpClient HTTP客户端实现
type httpClient struct {
	config  *HTTPConfig
	baseURL string
	client  *http.Client
}

/**
 * Create a client for the loopback control API
 * @param {HTTPConfig} config - Address and timeout, nil for DefaultHTTPConfig
 * @returns {HTTPClient} Client talking plain HTTP to the serve command
 * @example
 * client := rpc.NewHTTPClient(nil)
 * rsp, err := client.Get("/fcc/api/v1/status", nil)
 */
func NewHTTPClient(config *HTTPConfig) HTTPClient {
	if config == nil {
		config = DefaultHTTPConfig()
	}
	return &httpClient{
		config:  config,
		baseURL: "http://" + config.Address,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

func (c *httpClient) do(method, path string, params map[string]interface{}, body io.Reader) (*HTTPResponse, error) {
	url, err := buildURL(c.baseURL, path, params)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	logger.Debugf("Sending %s request to %s", method, url)

	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	httpResp, err := deserializeResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize response: %w", err)
	}
	return httpResp, nil
}

// Get 发送GET请求
func (c *httpClient) Get(path string, params map[string]interface{}) (*HTTPResponse, error) {
	return c.do(http.MethodGet, path, params, nil)
}

// Post 发送POST请求
func (c *httpClient) Post(path string, data interface{}) (*HTTPResponse, error) {
	body, err := serializeData(data)
	if err != nil {
		return nil, err
	}
	return c.do(http.MethodPost, path, nil, body)
}

// Close 释放空闲连接
func (c *httpClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
