// version.go implements the 'stmdiag version' command.
package main

import (
	"fmt"

	"github.com/kolkov/gostm/stm"
)

// versionCommand prints the library's version and its transaction
// protocol description, as reported by stm.GetInfo.
func versionCommand(_ []string) {
	info := stm.GetInfo()
	fmt.Printf("stmdiag / stm version %s\n", info.Version)
	fmt.Printf("protocol: %s\n", info.Protocol)
}
