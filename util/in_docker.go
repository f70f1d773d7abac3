package util

import "os"

// IsRunningInDocker checks for the marker file docker places in every container
func IsRunningInDocker() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
}
