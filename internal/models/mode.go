package models

// Mode 引导运行模式，由文件系统状态推导，不通过参数传入
type Mode string

const (
	ModeInstall     Mode = "INSTALL"
	ModeRepair      Mode = "REPAIR"
	ModeQuickLaunch Mode = "QUICK_LAUNCH"
)

/**
 * Resolve bootstrap mode from install state
 * @param {bool} markerPresent - Whether the installation marker exists
 * @param {bool} shortcutPresent - Whether the desktop entry point exists
 * @returns {Mode} INSTALL when no marker, REPAIR when marker without shortcut, otherwise QUICK_LAUNCH
 */
func ResolveMode(markerPresent, shortcutPresent bool) Mode {
	if !markerPresent {
		return ModeInstall
	}
	if !shortcutPresent {
		return ModeRepair
	}
	return ModeQuickLaunch
}

// Provisions 是否执行完整的证书/信任/快捷方式流程
func (m Mode) Provisions() bool {
	return m == ModeInstall || m == ModeRepair
}
