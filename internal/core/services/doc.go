// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services never import adapters. Everything outside the process reaches
// them through the interfaces in ports/driven.
package services
