//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and then runs the demo.
func (Run) Engine() error {
	if err := (Build{}).Shaders(); err != nil {
		return err
	}
	fmt.Println("Run engine...")
	if err := run("go", "run", "main.go"); err != nil {
		return err
	}
	return nil
}
