// checkmod.go implements the 'stmdiag checkmod' command.
package main

import (
	"fmt"
	"os"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/semver"
)

// wantRequires lists the module paths stm's own go.mod requires; checkmod
// reports which of them a target go.mod is missing, which is useful when
// vendoring or replace-directive surgery has silently dropped one.
var wantRequires = []string{
	"golang.org/x/mod",
	"golang.org/x/sys",
}

// minGoVersion is the oldest Go release stm builds with: its generic type
// alias (stm.Var) needs Go 1.24; generics and atomic.Pointer[T] alone
// would need 1.19.
const minGoVersion = "1.24"

// checkmodCommand implements 'stmdiag checkmod [path]'. path defaults to
// "go.mod" in the current directory.
func checkmodCommand(args []string) {
	path := "go.mod"
	if len(args) > 0 {
		path = args[0]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
		os.Exit(1)
	}

	mf, err := modfile.Parse(path, data, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing %s: %v\n", path, err)
		os.Exit(1)
	}

	have := make(map[string]string, len(mf.Require))
	for _, r := range mf.Require {
		have[r.Mod.Path] = r.Mod.Version
	}

	fmt.Printf("module: %s\n", mf.Module.Mod.Path)

	problems := 0
	if mf.Go != nil {
		fmt.Printf("go directive: %s\n", mf.Go.Version)
		if semver.Compare("v"+mf.Go.Version, "v"+minGoVersion) < 0 {
			fmt.Printf("  too old: stm requires go %s or newer (generic type aliases)\n", minGoVersion)
			problems++
		}
	} else {
		fmt.Println("  missing a go directive entirely")
		problems++
	}

	missing := 0
	for _, want := range wantRequires {
		if v, ok := have[want]; ok {
			fmt.Printf("  ok      %s %s\n", want, v)
			continue
		}
		fmt.Printf("  missing %s\n", want)
		missing++
	}

	if total := missing + problems; total > 0 {
		fmt.Fprintf(os.Stderr, "\n%d issue(s) found in %s\n", total, path)
		os.Exit(1)
	}
	fmt.Println("\nall expected dependencies present")
}
