// Command pawcart is the guest and user cart client for the pet adoption API.
package main

import "github.com/mesh-intelligence/pawcart/internal/cli"

func main() {
	cli.Execute()
}
