// Package cli defines the clinicflow command tree.
//
// Without a subcommand the terminal dashboard starts. The subcommands
// reuse the same wiring (config, credential store, client) for scripting:
//
//	clinicflow login --username dr.house
//	clinicflow status
//	clinicflow patients --search smith
//	clinicflow appointments --status CONFIRMED
//	clinicflow logs -n 50 --level warn
//	clinicflow logout
//
// Each command builds its environment with app.Setup and closes it before
// returning, so tokens written by one command are visible to the next.
package cli
