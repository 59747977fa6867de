package platform

import "runtime/debug"

const modulePath = "github.com/kbukum/osal"

// Version overrides the reported osal version when set with -ldflags.
var Version = ""

// ModuleVersion returns the osal version linked into the running binary,
// or "dev" for local builds.
func ModuleVersion() string {
	if Version != "" {
		return Version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	return versionFrom(info)
}

func versionFrom(info *debug.BuildInfo) string {
	if info.Main.Path == modulePath && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	for _, dep := range info.Deps {
		if dep.Path != modulePath {
			continue
		}
		if dep.Replace != nil && dep.Replace.Version != "" {
			return dep.Replace.Version
		}
		return dep.Version
	}
	return "dev"
}
