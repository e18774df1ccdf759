package models

// TrustScope 信任锚安装范围
type TrustScope string

const (
	ScopeMachine TrustScope = "machine"
	ScopeUser    TrustScope = "user"
)

// AllScopes 固定的评估顺序：先机器级，再用户级
var AllScopes = []TrustScope{ScopeMachine, ScopeUser}

/**
 * TrustAnchorRecord is the outcome of installing the local root authority into one trust store scope
 * @property {TrustScope} scope - machine-wide or current-user
 * @property {bool} installed - Whether any mechanism succeeded
 * @property {string} method - Mechanism that succeeded, or the last one attempted
 * @property {string} error - Last failure message when not installed
 */
type TrustAnchorRecord struct {
	Scope     TrustScope `json:"scope" yaml:"scope"`
	Installed bool       `json:"installed" yaml:"installed"`
	Method    string     `json:"method,omitempty" yaml:"method,omitempty"`
	Error     string     `json:"error,omitempty" yaml:"error,omitempty"`
}
