package models

// LicenseResult 许可证校验结果
type LicenseResult struct {
	Passed          bool   `json:"passed" yaml:"passed"`
	Code            string `json:"code,omitempty" yaml:"code,omitempty"`
	Reason          string `json:"reason,omitempty" yaml:"reason,omitempty"`
	ActivationCount int    `json:"activationCount,omitempty" yaml:"activationCount,omitempty"`
	MaxActivations  int    `json:"maxActivations,omitempty" yaml:"maxActivations,omitempty"`
	ActivationToken string `json:"-" yaml:"-"`
}

// LicenseVerifyRequest 许可证服务校验请求
type LicenseVerifyRequest struct {
	LicenseKey         string `json:"license_key"`
	MachineFingerprint string `json:"machine_fingerprint"`
	Email              string `json:"email,omitempty"`
	Hostname           string `json:"hostname"`
	Platform           string `json:"platform"`
	AppVersion         string `json:"app_version"`
}

// LicenseVerifyResponse 许可证服务校验响应
type LicenseVerifyResponse struct {
	Ok              bool   `json:"ok"`
	Error           string `json:"error"`
	ActivationToken string `json:"activation_token"`
	License         *struct {
		ActivationCount int `json:"activation_count"`
		MaxActivations  int `json:"max_activations"`
	} `json:"license"`
}
