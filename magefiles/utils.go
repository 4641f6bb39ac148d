//go:build mage

package main

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/magefile/mage/mg"
)

// run executes a tool and streams its output when mage runs verbose.
// On failure the captured output is replayed so the error is visible
// even in quiet mode.
func run(name string, args ...string) error {
	fmt.Printf("Executing: %s %s\n", name, strings.Join(args, " "))

	cmd := exec.Command(name, args...)
	if mg.Verbose() {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("error executing %s: %w", name, err)
		}
		return nil
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		fmt.Println("... failed command output:")
		fmt.Println(out.String())
		return fmt.Errorf("error executing %s: %w", name, err)
	}
	return nil
}
