package deps

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// CheckFFmpeg reports the encoder binary hindsight will execute.
//
// The configured command may be a bare name resolved from PATH or an
// explicit path. Either way the resolved location is recorded so status
// output shows exactly which binary the recorder runs.
func CheckFFmpeg(configured string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Captures the screen and merges replay exports",
	}

	command := strings.TrimSpace(configured)
	if command == "" {
		command = "ffmpeg"
	}
	result.Command = command

	if strings.ContainsRune(command, os.PathSeparator) {
		info, err := os.Stat(command)
		if err != nil {
			result.Detail = fmt.Sprintf("binary %q not found", command)
			return result
		}
		if !isExecutable(info) {
			result.Detail = fmt.Sprintf("%q is not executable", command)
			return result
		}
		result.Available = true
		return result
	}

	resolved, err := exec.LookPath(command)
	if err != nil {
		result.Detail = fmt.Sprintf("binary %q not found", command)
		return result
	}
	result.Command = resolved
	result.Available = true
	return result
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
