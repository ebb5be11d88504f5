// Command vmsim runs scripts of memory accesses against a simulated MMU.
package main

import "github.com/sarchlab/vmsim/vmsim/cmd"

func main() {
	cmd.Execute()
}
