package main

import "github.com/restmap/restmap/cmd/restmap"

func main() {
	restmap.Main()
}
