package main

import "github.com/danieleds/GFS/cmd"

func main() {
	cmd.Execute()
}
