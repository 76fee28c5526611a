// Package fileutil holds small filesystem helpers shared by the transfer
// commands.
package fileutil
