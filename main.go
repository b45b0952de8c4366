// The main package for the lessons-crawler executable.
package main

import (
	"github.com/meiran-labs/lessons-crawler/cmd"
)

func main() {
	cmd.Execute()
}
