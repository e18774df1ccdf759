package models

/**
 * HealthProbeResult is the per-run outcome of readiness polling
 * @property {bool} ready - A probe returned a status below 500
 * @property {int} attempts - Number of probes performed
 * @property {int} pid - Pid of the launched application
 * @property {bool} exited - The application exited before answering
 */
type HealthProbeResult struct {
	Ready      bool   `json:"ready" yaml:"ready"`
	Attempts   int    `json:"attempts" yaml:"attempts"`
	URL        string `json:"url" yaml:"url"`
	StatusCode int    `json:"statusCode,omitempty" yaml:"statusCode,omitempty"`
	LastError  string `json:"lastError,omitempty" yaml:"lastError,omitempty"`
	Pid        int    `json:"pid,omitempty" yaml:"pid,omitempty"`
	Exited     bool   `json:"exited,omitempty" yaml:"exited,omitempty"`
	ExitCode   int    `json:"exitCode,omitempty" yaml:"exitCode,omitempty"`
}

// ManagedProcess 安装目录下运行的进程
type ManagedProcess struct {
	Pid  int32  `json:"pid" yaml:"pid"`
	Exe  string `json:"exe" yaml:"exe"`
	Name string `json:"name" yaml:"name"`
}

/**
 * ShortcutDescriptor describes the persistent desktop entry point
 * @property {string} name - Display name, also the file base name
 * @property {string} target - Executable the entry launches
 * @property {[]string} args - Arguments passed to target
 * @property {string} workingDir - Working directory of the launched process
 * @property {string} icon - Icon path, optional
 * @property {[]string} legacyNames - Names used by earlier releases that must be removed
 */
type ShortcutDescriptor struct {
	Name        string   `json:"name" yaml:"name"`
	Target      string   `json:"target" yaml:"target"`
	Args        []string `json:"args,omitempty" yaml:"args,omitempty"`
	WorkingDir  string   `json:"workingDir" yaml:"workingDir"`
	Icon        string   `json:"icon,omitempty" yaml:"icon,omitempty"`
	Comment     string   `json:"comment,omitempty" yaml:"comment,omitempty"`
	LegacyNames []string `json:"legacyNames,omitempty" yaml:"legacyNames,omitempty"`
}
