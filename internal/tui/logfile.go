package tui

import (
	"os"
	"path/filepath"
)

// GetLogFilePath returns the path to the log file.
// If JFLOW_LOG_FILE is set, uses that path.
// Otherwise, uses ~/.jflow/logs/jflow.log
func GetLogFilePath() string {
	if customPath := os.Getenv("JFLOW_LOG_FILE"); customPath != "" {
		return customPath
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if we can't get home dir
		return "jflow.log"
	}

	return filepath.Join(homeDir, ".jflow", "logs", "jflow.log")
}
