// Package config provides configuration helpers for go-groove commands.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Default robot configuration.
const (
	DefaultRobotPort = "8080"

	// DefaultSampleRate is the analysis sample rate in Hz.
	DefaultSampleRate = 22050

	// DefaultBufferDuration is the rolling analysis window in seconds.
	DefaultBufferDuration = 5.0

	// DefaultChunkDuration is the live capture slice in seconds.
	DefaultChunkDuration = 0.1
)

// RobotIP returns the robot IP from ROBOT_IP env var.
// Falls back to the provided default if not set.
func RobotIP(defaultIP string) string {
	if ip := os.Getenv("ROBOT_IP"); ip != "" {
		return ip
	}
	return defaultIP
}

// RobotAPIURL returns the robot bridge HTTP API URL.
func RobotAPIURL(robotIP string) string {
	port := os.Getenv("ROBOT_PORT")
	if port == "" {
		port = DefaultRobotPort
	}
	return fmt.Sprintf("http://%s:%s", robotIP, port)
}

// SampleRate returns the analysis sample rate from GROOVE_SAMPLE_RATE or the default.
func SampleRate() int {
	if v := os.Getenv("GROOVE_SAMPLE_RATE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultSampleRate
}

// HistoryPath returns the run-history database path from GROOVE_HISTORY,
// or empty when history recording is disabled.
func HistoryPath() string {
	return os.Getenv("GROOVE_HISTORY")
}

// LogLevel returns the log level from GROOVE_LOG_LEVEL or "info".
func LogLevel() string {
	if v := os.Getenv("GROOVE_LOG_LEVEL"); v != "" {
		return v
	}
	return "info"
}
