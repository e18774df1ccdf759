package root

import (
	"os"
	"path/filepath"

	"fcc-bootstrap/internal/config"
	"fcc-bootstrap/internal/env"
	"fcc-bootstrap/internal/logger"

	"github.com/spf13/cobra"
)

var (
	installRoot string
	dataDir     string
	verbose     bool
	exitCode    int
)

var RootCmd = &cobra.Command{
	Use:   "fcc-bootstrap",
	Short: "FCC 平台引导程序",
	Long: `fcc-bootstrap 负责 FCC 平台的安装、修复与快速启动：
解析 Python 运行时、校验许可证、签发本地根证书并安装到信任库、
创建桌面快捷方式，最后启动应用并等待其就绪。`,
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
}

/**
 * Apply global flags before any subcommand runs
 * @description
 * - --root overrides the install root, --data-dir the per-user data dir; either reloads configuration
 * - Logging mirrors to stdout for --verbose and the serve command
 */
func prepare(cmd *cobra.Command, args []string) error {
	if installRoot != "" || dataDir != "" {
		if err := applyPaths(installRoot, dataDir); err != nil {
			return err
		}
	}
	toConsole := verbose || cmd.Name() == "serve"
	logger.InitLoggerWithMode(&config.Config.Log, toConsole)
	return nil
}

func applyPaths(root, data string) error {
	if root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return err
		}
		env.InstallRoot = abs
	}
	if data != "" {
		abs, err := filepath.Abs(data)
		if err != nil {
			return err
		}
		env.DataDir = abs
		// 子进程（应用、许可证脚本）使用同一数据目录
		os.Setenv("FCC_DATA_DIR", abs)
	}
	if err := config.ReloadConfig(); err != nil {
		return err
	}
	if root != "" {
		config.Config.InstallRoot = env.InstallRoot
	}
	if data != "" {
		config.Config.DataDir = env.DataDir
	}
	return nil
}

// SetExitCode 记录进程退出码，由 main 在命令结束后使用
func SetExitCode(code int) {
	exitCode = code
}

func ExitCode() int {
	return exitCode
}

// Execute 执行命令，命令本身出错时退出码为 1
func Execute() int {
	if err := RootCmd.Execute(); err != nil {
		if exitCode == 0 {
			exitCode = 1
		}
	}
	return exitCode
}

func init() {
	RootCmd.PersistentFlags().StringVar(&installRoot, "root", "", "Install root (default: directory of the executable)")
	RootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Per-user data directory (default: FCC_DATA_DIR or the platform data dir)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Mirror log output to the console")
	RootCmd.SetOut(os.Stdout)
}
