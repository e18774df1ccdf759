package models

import "time"

/**
 * AuthorityPaths locates the local root authority and the loopback server certificate
 * @property {string} rootCert - PEM of the root authority certificate
 * @property {string} rootKey - Root authority private key
 * @property {string} serverCert - Server certificate signed by the root
 * @property {string} serverKey - Server certificate private key
 */
type AuthorityPaths struct {
	RootCert   string `json:"rootCert" yaml:"rootCert"`
	RootKey    string `json:"rootKey" yaml:"rootKey"`
	ServerCert string `json:"serverCert" yaml:"serverCert"`
	ServerKey  string `json:"serverKey" yaml:"serverKey"`
}

// CertFileStatus 单个证书文件的诊断信息
type CertFileStatus struct {
	Path      string    `json:"path" yaml:"path"`
	Exists    bool      `json:"exists" yaml:"exists"`
	Subject   string    `json:"subject,omitempty" yaml:"subject,omitempty"`
	Issuer    string    `json:"issuer,omitempty" yaml:"issuer,omitempty"`
	NotAfter  time.Time `json:"notAfter,omitempty" yaml:"notAfter,omitempty"`
	DaysLeft  int       `json:"daysLeft" yaml:"daysLeft"`
	DNSNames  []string  `json:"dnsNames,omitempty" yaml:"dnsNames,omitempty"`
	ParseFail string    `json:"parseError,omitempty" yaml:"parseError,omitempty"`
}

/**
 * CertHealthReport is the non-blocking diagnostic produced after trust installation
 * @property {bool} healthy - No problems were found
 * @property {[]string} problems - Human readable findings
 */
type CertHealthReport struct {
	Root        CertFileStatus `json:"root" yaml:"root"`
	Server      CertFileStatus `json:"server" yaml:"server"`
	KeyPairOK   bool           `json:"keyPairOk" yaml:"keyPairOk"`
	SignedByCA  bool           `json:"signedByCa" yaml:"signedByCa"`
	CoversHosts bool           `json:"coversHosts" yaml:"coversHosts"`
	Endpoint    string         `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	EndpointOK  bool           `json:"endpointOk" yaml:"endpointOk"`
	Healthy     bool           `json:"healthy" yaml:"healthy"`
	Problems    []string       `json:"problems,omitempty" yaml:"problems,omitempty"`
	CheckedAt   time.Time      `json:"checkedAt" yaml:"checkedAt"`
}
