// Package dx intercepts Direct3D 11 device creation and the device methods
// the event hub subscribers need, and feeds the hub. It is only built on
// Windows.
package dx
