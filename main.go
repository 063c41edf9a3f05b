package main

import "github.com/maxvaer/cmsid/cmd"

func main() {
	cmd.Execute()
}
