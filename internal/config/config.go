package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fcc-bootstrap/internal/env"

	"github.com/spf13/viper"
)

/**
 * Local control API configuration
 * @property {string} address - Listening address, loopback only (e.g. "127.0.0.1:8765")
 * @property {string} mode - Gin mode (debug/release/test)
 */
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path, empty for <dataDir>/logs/fcc-bootstrap.log
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

/**
 * Metrics configuration
 * @property {string} pushgateway - Pushgateway address, empty disables pushing
 * @property {time.Duration} interval - Push period of the serve command, 0 disables
 */
type MetricsConfig struct {
	Pushgateway string        `mapstructure:"pushgateway"`
	Job         string        `mapstructure:"job"`
	Interval    time.Duration `mapstructure:"interval"`
}

/**
 * Runtime resolution and provisioning
 * @property {string} min_version - Minimum (major.minor) accepted
 * @property {string} installer_url - Windows installer, used during INSTALL only
 * @property {bool} venv - Prepare <root>/.venv and install requirements.txt
 */
type RuntimeConfig struct {
	MinVersion        string        `mapstructure:"min_version"`
	InstallerURL      string        `mapstructure:"installer_url"`
	MacInstallerURL   string        `mapstructure:"mac_installer_url"`
	LinuxInstallerURL string        `mapstructure:"linux_installer_url"`
	ProbeTimeout      time.Duration `mapstructure:"probe_timeout"`
	DownloadTimeout   time.Duration `mapstructure:"download_timeout"`
	Venv              bool          `mapstructure:"venv"`
	LiteRequirements  []string      `mapstructure:"lite_requirements"`
}

// CertConfig 本地证书颁发机构设置
type CertConfig struct {
	Tool         string   `mapstructure:"tool"`
	Hosts        []string `mapstructure:"hosts"`
	WarnDays     int      `mapstructure:"warn_days"`
	DialEndpoint bool     `mapstructure:"dial_endpoint"`
}

// TrustConfig 信任库安装设置
type TrustConfig struct {
	Elevate  bool   `mapstructure:"elevate"`
	CopyName string `mapstructure:"copy_name"`
}

/**
 * Application launch and readiness probing
 * @property {int} port - Preferred port, FCC_PORT overrides
 * @property {int} port_range - How many ports after the preferred one may be tried
 * @property {int} max_attempts - Readiness probes before giving up
 * @property {time.Duration} delay - Pause between probes
 */
type LaunchConfig struct {
	Entry       string            `mapstructure:"entry"`
	Port        int               `mapstructure:"port"`
	PortRange   int               `mapstructure:"port_range"`
	HealthPath  string            `mapstructure:"health_path"`
	MaxAttempts int               `mapstructure:"max_attempts"`
	Delay       time.Duration     `mapstructure:"delay"`
	AppMode     string            `mapstructure:"app_mode"`
	OpenBrowser bool              `mapstructure:"open_browser"`
	Env         map[string]string `mapstructure:"env"`
}

/**
 * License gate configuration
 * @property {string} mode - script (license_manager.py, default), http (verify endpoint) or off
 * @property {string} server - License server base URL
 * @property {[]string} fallbackServers - Tried in order when the server is unreachable (http mode)
 */
type LicenseConfig struct {
	Mode            string        `mapstructure:"mode"`
	Server          string        `mapstructure:"server"`
	FallbackServers []string      `mapstructure:"fallback_servers"`
	Key             string        `mapstructure:"key"`
	Email           string        `mapstructure:"email"`
	Script          string        `mapstructure:"script"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// ShortcutConfig 桌面入口设置
type ShortcutConfig struct {
	Name        string   `mapstructure:"name"`
	Icon        string   `mapstructure:"icon"`
	LegacyNames []string `mapstructure:"legacy_names"`
}

// LockConfig 运行锁设置
type LockConfig struct {
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

type AppConfig struct {
	InstallRoot string         `mapstructure:"install_root"`
	DataDir     string         `mapstructure:"data_dir"`
	AppVersion  string         `mapstructure:"app_version"`
	Server      ServerConfig   `mapstructure:"server"`
	Log         LogConfig      `mapstructure:"log"`
	Metrics     MetricsConfig  `mapstructure:"metrics"`
	Runtime     RuntimeConfig  `mapstructure:"runtime"`
	Cert        CertConfig     `mapstructure:"cert"`
	Trust       TrustConfig    `mapstructure:"trust"`
	Launch      LaunchConfig   `mapstructure:"launch"`
	License     LicenseConfig  `mapstructure:"license"`
	Shortcut    ShortcutConfig `mapstructure:"shortcut"`
	Lock        LockConfig     `mapstructure:"lock"`
}

const ConfigName = "fcc-bootstrap"

func setDefaults(v *viper.Viper) {
	v.SetDefault("install_root", env.InstallRoot)
	v.SetDefault("data_dir", env.DataDir)
	v.SetDefault("app_version", "1.0.0")

	v.SetDefault("server.address", "127.0.0.1:8765")
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "")

	v.SetDefault("metrics.job", "fcc_bootstrap")
	v.SetDefault("metrics.interval", 0)

	v.SetDefault("runtime.min_version", "3.11")
	v.SetDefault("runtime.installer_url", "https://www.python.org/ftp/python/3.11.7/python-3.11.7-amd64.exe")
	v.SetDefault("runtime.mac_installer_url", "https://www.python.org/ftp/python/3.11.7/python-3.11.7-macos11.pkg")
	v.SetDefault("runtime.linux_installer_url", "")
	v.SetDefault("runtime.probe_timeout", 5*time.Second)
	v.SetDefault("runtime.download_timeout", 10*time.Minute)
	v.SetDefault("runtime.venv", false)
	v.SetDefault("runtime.lite_requirements", []string{
		"Flask>=3.0,<4",
		"Werkzeug>=3.0,<4",
		"requests>=2.31,<3",
		"python-dotenv>=1.0,<2",
		"cryptography>=41,<44",
	})

	v.SetDefault("cert.tool", "mkcert")
	v.SetDefault("cert.hosts", []string{"localhost", "127.0.0.1", "::1"})
	v.SetDefault("cert.warn_days", 7)
	v.SetDefault("cert.dial_endpoint", false)

	v.SetDefault("trust.elevate", true)
	v.SetDefault("trust.copy_name", "FCC-Local-Root-CA.crt")

	v.SetDefault("launch.entry", "app_with_setup_wizard.py")
	v.SetDefault("launch.port", 8000)
	v.SetDefault("launch.port_range", 10)
	v.SetDefault("launch.health_path", "/health")
	v.SetDefault("launch.max_attempts", 30)
	v.SetDefault("launch.delay", 2*time.Second)
	v.SetDefault("launch.app_mode", "demo")
	v.SetDefault("launch.open_browser", true)

	v.SetDefault("license.mode", "script")
	v.SetDefault("license.server", "https://license.daywinlabs.com")
	v.SetDefault("license.script", "license_manager.py")
	v.SetDefault("license.timeout", 15*time.Second)

	v.SetDefault("shortcut.name", "FCC Platform")
	v.SetDefault("shortcut.legacy_names", []string{"FCC", "Start FCC", "FCC Launcher"})

	v.SetDefault("lock.stale_after", 30*time.Minute)
}

func bindEnvs(v *viper.Viper) {
	_ = v.BindEnv("install_root", "FCC_INSTALL_ROOT")
	_ = v.BindEnv("launch.port", "FCC_PORT")
	_ = v.BindEnv("launch.app_mode", "APP_MODE")
	_ = v.BindEnv("license.key", "FCC_LICENSE_KEY")
	_ = v.BindEnv("license.email", "FCC_LICENSE_EMAIL")
	_ = v.BindEnv("license.server", "LICENSE_SERVER")
	_ = v.BindEnv("runtime.installer_url", "FCC_PYTHON_INSTALLER_URL")
	_ = v.BindEnv("metrics.pushgateway", "FCC_PUSHGATEWAY")
	_ = v.BindEnv("log.level", "FCC_LOG_LEVEL")
}

/**
 * Load application configuration from YAML file
 * @param {...string} paths - Directories searched for fcc-bootstrap.yaml, in order
 * @returns {*AppConfig} Configuration with defaults applied; a missing file is not an error
 */
func LoadConfig(paths ...string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	setDefaults(v)
	bindEnvs(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return collectConfig(&cfg), nil
}

var Config AppConfig

func collectConfig(cfg *AppConfig) *AppConfig {
	if cfg.InstallRoot == "" {
		cfg.InstallRoot = env.InstallRoot
	}
	if abs, err := filepath.Abs(cfg.InstallRoot); err == nil {
		cfg.InstallRoot = abs
	}
	if cfg.DataDir == "" {
		cfg.DataDir = env.DataDir
	}
	if cfg.Log.Path == "" {
		cfg.Log.Path = filepath.Join(cfg.DataDir, "logs", "fcc-bootstrap.log")
	}
	if cfg.Launch.PortRange < 0 {
		cfg.Launch.PortRange = 0
	}
	if cfg.Launch.MaxAttempts < 1 {
		cfg.Launch.MaxAttempts = 1
	}
	if cfg.Launch.Env == nil {
		cfg.Launch.Env = map[string]string{}
	}
	return cfg
}

func searchPaths() []string {
	paths := []string{env.InstallRoot, "."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".fcc"))
	}
	return paths
}

// ReloadConfig 重新读取配置文件
func ReloadConfig() error {
	cfg, err := LoadConfig(searchPaths()...)
	if err != nil {
		return err
	}
	Config = *cfg
	return nil
}

func init() {
	cfg, err := LoadConfig(searchPaths()...)
	if err == nil {
		Config = *cfg
	} else {
		fmt.Fprintf(os.Stderr, "load config failed, using defaults: %v\n", err)
		collectConfig(&Config)
	}
}
