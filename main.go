package main

import "github.com/waybackd/wayback-archiver/cmd"

func main() {
	cmd.Execute()
}
