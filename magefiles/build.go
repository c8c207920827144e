//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

const shaderDir = "assets/shaders"

// Shaders compiles every GLSL source under assets/shaders to SPIR-V.
func (Build) Shaders() error {
	return buildShaders()
}

// Binary compiles the shaders and builds the demo executable.
func (Build) Binary() error {
	if err := buildShaders(); err != nil {
		return err
	}
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/ignite", "."), withStream()); err != nil {
		return err
	}
	return nil
}

func buildShaders() error {
	sources, err := shaderSources()
	if err != nil {
		return err
	}
	for _, src := range sources {
		if _, err := executeCmd("glslc", withArgs(src, "-o", src+".spv"), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// shaderSources lists the GLSL stage files under the shader directory.
func shaderSources() ([]string, error) {
	var sources []string
	err := filepath.Walk(shaderDir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".vert", ".frag":
			sources = append(sources, path)
		}
		return nil
	})
	return sources, err
}
