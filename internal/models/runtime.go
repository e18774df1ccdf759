package models

// RuntimeSource 运行时候选项的来源，按探测优先级排列
type RuntimeSource string

const (
	SourceEmbedded  RuntimeSource = "embedded"
	SourcePath      RuntimeSource = "path"
	SourceVersioned RuntimeSource = "versioned"
	SourceLauncher  RuntimeSource = "launcher"
	SourceUserLocal RuntimeSource = "user-local"
	SourceCache     RuntimeSource = "cache"
	SourceInstalled RuntimeSource = "installed"
)

/**
 * RuntimeCandidate describes one interpreter that may run the application
 * @property {string} path - Executable path or command name
 * @property {[]string} args - Leading args needed to select the interpreter (e.g. "-3" for py launcher)
 * @property {RuntimeSource} source - Where the candidate was discovered
 * @property {string} version - Probed version, empty until probed
 */
type RuntimeCandidate struct {
	Path    string        `json:"path" yaml:"path"`
	Args    []string      `json:"args,omitempty" yaml:"args,omitempty"`
	Source  RuntimeSource `json:"source" yaml:"source"`
	Version string        `json:"version,omitempty" yaml:"version,omitempty"`
}

// Command 返回调用该解释器执行额外参数时的完整命令行
func (c RuntimeCandidate) Command(extra ...string) (string, []string) {
	args := make([]string, 0, len(c.Args)+len(extra))
	args = append(args, c.Args...)
	args = append(args, extra...)
	return c.Path, args
}

func (c RuntimeCandidate) IsZero() bool {
	return c.Path == ""
}
