//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

const shaderDir = "assets/shaders"

var shaderSources = []string{
	"scene.vert",
	"scene.frag",
	"alphatest.frag",
	"sprite.vert",
	"sprite.frag",
}

// Compiles every GLSL shader to SPIR-V with glslc.
func (Build) Shaders() error {
	for _, src := range shaderSources {
		in := filepath.Join(shaderDir, src)
		out := fmt.Sprintf("%s.spv", in)
		if err := run("glslc", in, "-o", out); err != nil {
			return err
		}
	}
	return nil
}
