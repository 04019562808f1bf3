//go:build !windows

package builder

func findMSVC() string { return "" }
