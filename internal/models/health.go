package models

// HealthResponse 本地控制接口健康检查响应
type HealthResponse struct {
	Version   string `json:"version" example:"1.0.0"`
	StartTime string `json:"startTime" example:"2024-01-01T10:00:00Z"`
	Status    string `json:"status" example:"UP"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// StatusResponse 引导状态
type StatusResponse struct {
	InstallRoot     string            `json:"installRoot" yaml:"installRoot"`
	DataDir         string            `json:"dataDir" yaml:"dataDir"`
	MarkerPresent   bool              `json:"markerPresent" yaml:"markerPresent"`
	MarkerTime      string            `json:"markerTime,omitempty" yaml:"markerTime,omitempty"`
	ShortcutPresent bool              `json:"shortcutPresent" yaml:"shortcutPresent"`
	ShortcutPath    string            `json:"shortcutPath" yaml:"shortcutPath"`
	Mode            Mode              `json:"mode" yaml:"mode"`
	Runtime         *RuntimeCandidate `json:"runtime,omitempty" yaml:"runtime,omitempty"`
	Elevated        bool              `json:"elevated" yaml:"elevated"`
}
