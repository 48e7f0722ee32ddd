// Package component defines the lifecycle interface shared by long-lived
// modules and a registry that starts them in order and stops them in reverse.
package component
