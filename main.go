// The main package for the preloader executable.
package main

import "github.com/acstiles/media-preloader/cmd"

func main() {
	cmd.Execute()
}
