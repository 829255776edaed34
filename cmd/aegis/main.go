// Command aegis evaluates and manages access-control policy rules.
package main

import "github.com/aegis-policy/aegis/cmd/aegis/cmd"

func main() {
	cmd.Execute()
}
