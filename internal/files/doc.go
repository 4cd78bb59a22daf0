// Package files discovers trial input files on disk.
//
// Example usage:
//
//	discovery := files.NewDiscovery(workingDir)
//	found, err := discovery.FindTrialFiles("data")
//	paths := files.Paths(found)
package files
